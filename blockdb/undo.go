// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blockvault/blockvaultd/blockrecord"
)

// StoredUndoData - reorg undo records; the UNDODATA keyspace is
// reserved but nothing writes it yet
type StoredUndoData struct {
	Height         uint32
	Dup            uint8
	StxOutsRemoved []*blockrecord.StoredTxOut
	OutPointsAdded [][]byte
}

// PutStoredUndoData - unimplemented
func (d *BlockDB) PutStoredUndoData(sud *StoredUndoData) bool {
	d.log.Error("PutStoredUndoData not implemented yet")
	return false
}

// GetStoredUndoData - unimplemented
func (d *BlockDB) GetStoredUndoData(height uint32, dup uint8) (*StoredUndoData, bool) {
	d.log.Error("GetStoredUndoData not implemented yet")
	return nil, false
}

// GetStoredUndoDataForHash - unimplemented
func (d *BlockDB) GetStoredUndoDataForHash(hash chainhash.Hash) (*StoredUndoData, bool) {
	d.log.Error("GetStoredUndoData not implemented yet")
	return nil, false
}
