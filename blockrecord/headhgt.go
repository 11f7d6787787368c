// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blockvault/blockvaultd/fault"
)

// DupHash - one competing header at a height
type DupHash struct {
	Dup  uint8
	Hash chainhash.Hash
}

// StoredHeadHgtList - all headers claiming one height
//
// PreferredDup names the main-branch entry; DupIDNone when no entry
// has been marked main yet.
type StoredHeadHgtList struct {
	Height         uint32
	PreferredDup   uint8
	DupAndHashList []DupHash
}

// one serialized entry: dup byte (high bit = preferred) + 32-byte hash
const headHgtEntrySize = 1 + chainhash.HashSize

// preferred marker on the dup byte
const headHgtPreferredBit = 0x80

// Key - HEADHGT key for this height
func (l *StoredHeadHgtList) Key() []byte {
	return append([]byte{PrefixHeadHgt}, HeightKey(l.Height)...)
}

// AddDupAndHash - append an entry
func (l *StoredHeadHgtList) AddDupAndHash(dup uint8, hash chainhash.Hash) {
	l.DupAndHashList = append(l.DupAndHashList, DupHash{Dup: dup, Hash: hash})
}

// Serialize - pack the list; the preferred entry carries the high bit
func (l *StoredHeadHgtList) Serialize() []byte {
	value := make([]byte, 0, len(l.DupAndHashList)*headHgtEntrySize)
	for _, entry := range l.DupAndHashList {
		dup := entry.Dup
		if dup == l.PreferredDup {
			dup |= headHgtPreferredBit
		}
		value = append(value, dup)
		value = append(value, entry.Hash[:]...)
	}
	return value
}

// DeserializeHeadHgtList - unpack a HEADHGT value
func DeserializeHeadHgtList(height uint32, value []byte) (*StoredHeadHgtList, error) {
	if 0 != len(value)%headHgtEntrySize {
		return nil, fault.TruncatedRecord
	}
	list := &StoredHeadHgtList{
		Height:       height,
		PreferredDup: DupIDNone,
	}
	for i := 0; i < len(value); i += headHgtEntrySize {
		dup := value[i]
		entry := DupHash{Dup: dup &^ headHgtPreferredBit}
		copy(entry.Hash[:], value[i+1:i+headHgtEntrySize])
		if 0 != dup&headHgtPreferredBit {
			list.PreferredDup = entry.Dup
		}
		list.DupAndHashList = append(list.DupAndHashList, entry)
	}
	return list, nil
}
