// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"encoding/binary"

	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/storage"
)

// The height→dup table resolves which duplicate-id is the main branch
// at each height.  It is owned by the store, seeded from the HEADHGT
// rows at open, and mutated only by PutBareHeader,
// SetValidDupIDForHeight and MarkBlockHeaderValid, all of which run on
// the single writer.

// ValidDupIDForHeight - main-branch duplicate-id for a height
//
// DupIDNone when the height is beyond the table or was never marked
func (d *BlockDB) ValidDupIDForHeight(height uint32) uint8 {
	d.dupLock.RLock()
	defer d.dupLock.RUnlock()
	if uint32(len(d.validDupByHeight)) < height+1 {
		return blockrecord.DupIDNone
	}
	return d.validDupByHeight[height]
}

// SetValidDupIDForHeight - record the main-branch duplicate-id
//
// without overwrite an already-set entry is left alone
func (d *BlockDB) SetValidDupIDForHeight(height uint32, dup uint8, overwrite bool) {
	d.dupLock.Lock()
	defer d.dupLock.Unlock()
	for uint32(len(d.validDupByHeight)) < height+1 {
		d.validDupByHeight = append(d.validDupByHeight, blockrecord.DupIDNone)
	}
	if !overwrite && blockrecord.DupIDNone != d.validDupByHeight[height] {
		return
	}
	d.validDupByHeight[height] = dup
}

// ValidDupIDForHeightFromDB - consult the stored HEADHGT row directly,
// bypassing the in-memory table
func (d *BlockDB) ValidDupIDForHeightFromDB(height uint32) uint8 {
	list, ok := d.GetStoredHeadHgtList(height)
	if !ok {
		d.log.Errorf("requested header at height %d does not exist in DB", height)
		return blockrecord.DupIDNone
	}
	if blockrecord.DupIDNone == list.PreferredDup {
		d.log.Errorf("no header at height %d is marked as main", height)
	}
	return list.PreferredDup
}

// seed the table from the stored HEADHGT rows
//
// internal: called during Open with the store lock held
func (d *BlockDB) loadValidDupTable() error {
	d.dupLock.Lock()
	d.validDupByHeight = nil
	d.dupLock.Unlock()

	return d.dbs[Headers].View(func(tx *storage.Tx) error {
		cursor := tx.NewCursor()
		if !cursor.SeekToStartsWith([]byte{blockrecord.PrefixHeadHgt}) {
			return nil // no headers yet
		}
		for {
			key := cursor.Key()
			if 5 != len(key) {
				d.log.Errorf("invalid HEADHGT key length: %d", len(key))
			} else if height := binary.BigEndian.Uint32(key[1:5]); height > blockrecord.MaxHeight {
				d.log.Errorf("invalid HEADHGT height: %d", height)
			} else {
				list, err := blockrecord.DeserializeHeadHgtList(height, cursor.Value())
				if nil == err && blockrecord.DupIDNone != list.PreferredDup {
					d.SetValidDupIDForHeight(height, list.PreferredDup, true)
				}
			}
			if !cursor.AdvanceAndReadPrefix(blockrecord.PrefixHeadHgt) {
				break
			}
		}
		return nil
	})
}
