// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/fault"
	"github.com/blockvault/blockvaultd/storage"
)

// PutStoredTxOut - store one tx-out record
//
// supernode keeps these in the blkdata database; fullnode keeps them,
// for tracked addresses only, in the history database
func (d *BlockDB) PutStoredTxOut(stxo *blockrecord.StoredTxOut) error {
	hist := d.database(History)
	if nil == hist {
		return fault.DatabaseIsNotOpen
	}
	return hist.Update(func(tx *storage.Tx) error {
		return tx.Put(stxo.DBKey(), stxo.Serialize())
	})
}

// GetStoredTxOut - fetch a tx-out by its 8-byte no-prefix key
func (d *BlockDB) GetStoredTxOut(dbKey8 []byte) (*blockrecord.StoredTxOut, bool) {
	if blockrecord.SpenderKeySize != len(dbKey8) {
		d.log.Errorf("tried to get StoredTxOut with a %d-byte key, expected 8", len(dbKey8))
		return nil, false
	}
	kind, height, dup, txIndex, txOutIndex := blockrecord.ReadBlkDataKey(dbKey8)
	if blockrecord.KindTxOut != kind {
		d.log.Errorf("unrecognised tx-out key: %x", dbKey8)
		return nil, false
	}
	return d.GetStoredTxOutAt(height, dup, txIndex, txOutIndex)
}

// GetStoredTxOutAt - fetch a tx-out by full placement
func (d *BlockDB) GetStoredTxOutAt(height uint32, dup uint8, txIndex uint16, txOutIndex uint16) (*blockrecord.StoredTxOut, bool) {
	hist := d.database(History)
	if nil == hist {
		return nil, false
	}

	stxo := &blockrecord.StoredTxOut{
		Height:     height,
		Dup:        dup,
		TxIndex:    txIndex,
		TxOutIndex: txOutIndex,
	}
	found := false

	_ = hist.View(func(tx *storage.Tx) error {
		value := tx.Get(stxo.DBKey())
		if nil == value {
			return nil
		}
		if err := stxo.Deserialize(value); nil != err {
			d.log.Errorf("corrupt tx-out record at %d|%d|%d|%d: %s",
				height, dup, txIndex, txOutIndex, err)
			return nil
		}
		// deserialization does not know its own key
		stxo.Height = height
		stxo.Dup = dup
		stxo.TxIndex = txIndex
		stxo.TxOutIndex = txOutIndex
		found = true
		return nil
	})

	if !found {
		return nil, false
	}
	return stxo, true
}

// GetStoredTxOutMain - main-branch tx-out by height and indexes
func (d *BlockDB) GetStoredTxOutMain(height uint32, txIndex uint16, txOutIndex uint16) (*blockrecord.StoredTxOut, bool) {
	dup := d.ValidDupIDForHeight(height)
	if blockrecord.DupIDNone == dup {
		d.log.Errorf("headers DB has no block at height %d", height)
		return nil, false
	}
	return d.GetStoredTxOutAt(height, dup, txIndex, txOutIndex)
}
