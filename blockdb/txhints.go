// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/fault"
	"github.com/blockvault/blockvaultd/storage"
)

func txHintsKey(hashPrefix []byte) []byte {
	key := make([]byte, 1+blockrecord.TxHashPrefixSize)
	key[0] = blockrecord.PrefixTxHints
	copy(key[1:], hashPrefix)
	return key
}

// GetStoredTxHints - hint list for a 4-byte (or longer) hash prefix
func (d *BlockDB) GetStoredTxHints(hashPrefix []byte) (*blockrecord.StoredTxHints, bool) {
	if len(hashPrefix) < blockrecord.TxHashPrefixSize {
		d.log.Error("cannot get hints without at least 4-byte prefix")
		return nil, false
	}

	hints := &blockrecord.StoredTxHints{}
	copy(hints.TxHashPrefix[:], hashPrefix)

	handle := d.database(TxHints)
	if nil == handle {
		return hints, false
	}

	found := false
	_ = handle.View(func(tx *storage.Tx) error {
		value := tx.Get(hints.DBKey())
		if nil == value {
			return nil
		}
		if err := hints.Deserialize(value); nil != err {
			d.log.Errorf("corrupt hint list for %x: %s", hashPrefix[:4], err)
			return nil
		}
		found = true
		return nil
	})
	return hints, found
}

// PutStoredTxHints - write a hint list
func (d *BlockDB) PutStoredTxHints(hints *blockrecord.StoredTxHints) error {
	if [blockrecord.TxHashPrefixSize]byte{} == hints.TxHashPrefix {
		d.log.Error("hints do not have a set prefix, so cannot be put into DB")
		return fault.UninitialisedRecord
	}
	handle := d.database(TxHints)
	if nil == handle {
		return fault.DatabaseIsNotOpen
	}
	return handle.Update(func(tx *storage.Tx) error {
		return tx.Put(hints.DBKey(), hints.Serialize())
	})
}

// GetHintsForTxHash - hint list for a full tx hash; an empty list is a
// common case, not an error
func (d *BlockDB) GetHintsForTxHash(hash chainhash.Hash) *blockrecord.StoredTxHints {
	hints, _ := d.GetStoredTxHints(hash[:blockrecord.TxHashPrefixSize])
	return hints
}

// UpdatePreferredTxHint - re-point the canonical candidate
//
// the preferred key must already be a member of the list
func (d *BlockDB) UpdatePreferredTxHint(hashOrPrefix []byte, preferred []byte) error {
	if len(hashOrPrefix) < blockrecord.TxHashPrefixSize {
		d.log.Error("cannot get hints without at least 4-byte prefix")
		return fault.InvalidKeyLength
	}
	handle := d.database(TxHints)
	if nil == handle {
		return fault.DatabaseIsNotOpen
	}

	return handle.Update(func(tx *storage.Tx) error {
		hints := &blockrecord.StoredTxHints{}
		copy(hints.TxHashPrefix[:], hashOrPrefix)
		value := tx.Get(hints.DBKey())
		if nil != value {
			if err := hints.Deserialize(value); nil != err {
				return err
			}
		}
		if bytes.Equal(hints.PreferredDBKey, preferred) {
			return nil
		}
		if !hints.Contains(preferred) {
			d.log.Error("key not in hint list, something is wrong")
			return fault.MissingHintEntry
		}
		hints.PreferredDBKey = preferred
		return tx.Put(hints.DBKey(), hints.Serialize())
	})
}

// MarkTxEntryValid - after a reorg, make a duplicated tx the canonical
// candidate of its hint list
//
// The rebuilt list is written under the TXHINTS prefix; a legacy
// rendition of this operation misfiled it under HEADHGT and was
// avoided by callers for that reason.
func (d *BlockDB) MarkTxEntryValid(height uint32, dup uint8, txIndex uint16) bool {

	blkDataKey := blockrecord.BlkDataKeyNoPrefix(height, dup, txIndex)

	// the hash prefix comes from the stored tx row itself
	var hashPrefix [blockrecord.TxHashPrefixSize]byte
	haveTx := false

	blk := d.database(BlkData)
	if nil == blk {
		return false
	}
	_ = blk.View(func(tx *storage.Tx) error {
		key := make([]byte, 1+len(blkDataKey))
		key[0] = blockrecord.PrefixTxData
		copy(key[1:], blkDataKey)
		value := tx.Get(key)
		if len(value) < blockrecord.TxValueHashOffset+blockrecord.TxHashPrefixSize {
			return nil
		}
		copy(hashPrefix[:], value[blockrecord.TxValueHashOffset:])
		haveTx = true
		return nil
	})
	if !haveTx {
		d.log.Error("no tx data at specified {hgt,dup,txidx}")
		return false
	}

	handle := d.database(TxHints)
	if nil == handle {
		return false
	}

	marked := false
	err := handle.Update(func(tx *storage.Tx) error {
		hints := &blockrecord.StoredTxHints{TxHashPrefix: hashPrefix}
		value := tx.Get(hints.DBKey())
		if nil == value {
			d.log.Error("no TXHINTS entry for specified {hgt,dup,txidx}")
			return nil
		}
		if err := hints.Deserialize(value); nil != err {
			return err
		}
		if 0 == hints.NumHints() {
			d.log.Error("no TXHINTS entry for specified {hgt,dup,txidx}")
			return nil
		}
		if !hints.Contains(blkDataKey) {
			d.log.Error("tx was not found in the TXHINTS list")
			return nil
		}

		// keep the canonical candidate in front as well as in the
		// preferred field
		reordered := make([][]byte, 0, len(hints.DBKeyList))
		reordered = append(reordered, blkDataKey)
		for _, key := range hints.DBKeyList {
			if !bytes.Equal(key, blkDataKey) {
				reordered = append(reordered, key)
			}
		}
		hints.DBKeyList = reordered
		hints.PreferredDBKey = blkDataKey
		marked = true
		return tx.Put(hints.DBKey(), hints.Serialize())
	})
	if nil != err {
		d.log.Errorf("mark tx entry valid: %s", err)
		return false
	}
	return marked
}
