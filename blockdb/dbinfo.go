// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/fault"
	"github.com/blockvault/blockvaultd/storage"
)

// GetStoredDBInfo - fetch the metadata row of a sub-database
func (d *BlockDB) GetStoredDBInfo(db DB) (*blockrecord.DBInfo, error) {
	handle := d.database(db)
	if nil == handle {
		return nil, fault.DatabaseIsNotOpen
	}
	var info *blockrecord.DBInfo
	err := handle.View(func(tx *storage.Tx) error {
		var err error
		info, err = getStoredDBInfoTx(tx)
		return err
	})
	if nil != err {
		return nil, err
	}
	return info, nil
}

// PutStoredDBInfo - overwrite the metadata row of a sub-database
func (d *BlockDB) PutStoredDBInfo(db DB, info *blockrecord.DBInfo) error {
	if !info.IsInitialized() {
		d.log.Error("tried to put uninitialised DB info")
		return fault.UninitialisedRecord
	}
	handle := d.database(db)
	if nil == handle {
		return fault.DatabaseIsNotOpen
	}
	return handle.Update(func(tx *storage.Tx) error {
		return putStoredDBInfoTx(tx, info)
	})
}

// TopBlockHash - current top of chain hash recorded in a sub-database
//
// the fullnode blkdata database carries no metadata row; its
// top-of-chain lives in the history database
func (d *BlockDB) TopBlockHash(db DB) (chainhash.Hash, error) {
	if ProfileSuper != d.profile && BlkData == db {
		return chainhash.Hash{}, fault.NoDBInfoInBlkData
	}
	info, err := d.GetStoredDBInfo(db)
	if nil != err {
		return chainhash.Hash{}, err
	}
	return info.TopBlkHash, nil
}

// TopBlockHeight - current top of chain height recorded in a sub-database
func (d *BlockDB) TopBlockHeight(db DB) (uint32, error) {
	if ProfileSuper != d.profile && BlkData == db {
		return 0, fault.NoDBInfoInBlkData
	}
	info, err := d.GetStoredDBInfo(db)
	if nil != err {
		return 0, err
	}
	return info.TopBlkHgt, nil
}

// transaction-scoped accessors shared by the multi-step mutations

func getStoredDBInfoTx(tx *storage.Tx) (*blockrecord.DBInfo, error) {
	value := tx.Get(blockrecord.DBInfoKey())
	if nil == value {
		return nil, fault.NotInitialised
	}
	return blockrecord.DeserializeDBInfo(value)
}

func putStoredDBInfoTx(tx *storage.Tx, info *blockrecord.DBInfo) error {
	return tx.Put(blockrecord.DBInfoKey(), info.Serialize())
}
