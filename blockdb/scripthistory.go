// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"bytes"

	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/fault"
	"github.com/blockvault/blockvaultd/storage"
)

// script history rows live in the history database (fullnode) or the
// blkdata database (supernode); the summary row is keyed by the bare
// script address and each sub-history appends a 4-byte hgtX, so a
// cursor walk visits the summary first and then the sub-histories in
// height order

func scriptKey(scrAddr []byte) []byte {
	key := make([]byte, 1, 1+len(scrAddr))
	key[0] = blockrecord.PrefixScript
	return append(key, scrAddr...)
}

// PutStoredScriptHistory - write the summary row and every non-empty
// sub-history in one transaction
func (d *BlockDB) PutStoredScriptHistory(ssh *blockrecord.StoredScriptHistory) error {
	if !ssh.IsInitialized() {
		d.log.Error("trying to put uninitialised SSH into DB")
		return fault.UninitialisedRecord
	}
	hist := d.database(History)
	if nil == hist {
		return fault.DatabaseIsNotOpen
	}
	return hist.Update(func(tx *storage.Tx) error {
		if err := tx.Put(ssh.DBKey(), ssh.Serialize()); nil != err {
			return err
		}
		for _, sub := range ssh.SubHistMap {
			if 0 == len(sub.Txios) {
				continue
			}
			if 0 == len(sub.UniqueKey) {
				sub.UniqueKey = ssh.UniqueKey
			}
			if err := tx.Put(sub.DBKey(), sub.Serialize()); nil != err {
				return err
			}
		}
		return nil
	})
}

// PutStoredScriptHistorySummary - write only the summary row
func (d *BlockDB) PutStoredScriptHistorySummary(ssh *blockrecord.StoredScriptHistory) error {
	if !ssh.IsInitialized() {
		d.log.Error("trying to put uninitialised SSH into DB")
		return fault.UninitialisedRecord
	}
	hist := d.database(History)
	if nil == hist {
		return fault.DatabaseIsNotOpen
	}
	return hist.Update(func(tx *storage.Tx) error {
		return tx.Put(ssh.DBKey(), ssh.Serialize())
	})
}

// PutStoredSubHistory - write one sub-history row
func (d *BlockDB) PutStoredSubHistory(sub *blockrecord.StoredSubHistory) error {
	if 0 == len(sub.UniqueKey) {
		d.log.Error("trying to put uninitialised sub-history into DB")
		return fault.UninitialisedRecord
	}
	if 0 == len(sub.Txios) {
		return nil
	}
	hist := d.database(History)
	if nil == hist {
		return fault.DatabaseIsNotOpen
	}
	return hist.Update(func(tx *storage.Tx) error {
		return tx.Put(sub.DBKey(), sub.Serialize())
	})
}

// GetStoredScriptHistorySummary - summary row only, no sub-histories
func (d *BlockDB) GetStoredScriptHistorySummary(scrAddr []byte) (*blockrecord.StoredScriptHistory, bool) {
	hist := d.database(History)
	if nil == hist {
		return nil, false
	}

	ssh := &blockrecord.StoredScriptHistory{}
	found := false

	_ = hist.View(func(tx *storage.Tx) error {
		value := tx.Get(scriptKey(scrAddr))
		if nil == value {
			return nil
		}
		if err := ssh.Deserialize(value); nil != err {
			d.log.Errorf("corrupt SSH row for %x: %s", scrAddr, err)
			return nil
		}
		ssh.UniqueKey = append([]byte(nil), scrAddr...)
		found = true
		return nil
	})

	if !found {
		return nil, false
	}
	return ssh, true
}

// GetStoredScriptHistory - summary plus the sub-histories whose height
// lies in [startBlock, endBlock]
//
// The scan positions at SCRIPT|address, optionally jumps forward to
// SCRIPT|address|hgtX(startBlock, 0), then accumulates rows while the
// key still starts with the address and the decoded height does not
// exceed endBlock.
func (d *BlockDB) GetStoredScriptHistory(scrAddr []byte, startBlock uint32, endBlock uint32) (*blockrecord.StoredScriptHistory, bool) {
	hist := d.database(History)
	if nil == hist {
		return nil, false
	}

	ssh := &blockrecord.StoredScriptHistory{}
	found := false

	_ = hist.View(func(tx *storage.Tx) error {
		sshKey := scriptKey(scrAddr)
		cursor := tx.NewCursor()
		if !cursor.SeekToExact(sshKey) {
			return nil
		}
		if err := ssh.Deserialize(cursor.Value()); nil != err {
			d.log.Errorf("corrupt SSH row for %x: %s", scrAddr, err)
			return nil
		}
		ssh.UniqueKey = append([]byte(nil), scrAddr...)
		found = true

		if 0 != startBlock {
			seekKey := append(append([]byte(nil), sshKey...),
				blockrecord.HeightDupToHgtX(startBlock, 0)...)
			if !cursor.SeekTo(seekKey) {
				// ran off the end of the DB without any sub-history
				found = false
				return nil
			}
		} else {
			if !cursor.AdvanceAndReadPrefix(blockrecord.PrefixScript) {
				found = false
				return nil
			}
		}

		for {
			key := cursor.Key()
			if !bytes.HasPrefix(key, sshKey) {
				break
			}
			if len(key) != len(sshKey)+blockrecord.HgtXSize {
				break
			}

			sub := &blockrecord.StoredSubHistory{
				UniqueKey: ssh.UniqueKey,
			}
			copy(sub.HgtX[:], key[len(key)-blockrecord.HgtXSize:])
			if sub.Height() > endBlock {
				break
			}
			if err := sub.Deserialize(cursor.Value()); nil != err {
				d.log.Errorf("corrupt sub-history row for %x at %x: %s",
					scrAddr, sub.HgtX, err)
				break
			}
			ssh.MergeSubHistory(sub)

			if !cursor.AdvanceAndReadPrefix(blockrecord.PrefixScript) {
				break
			}
		}
		return nil
	})

	if !found {
		return nil, false
	}
	return ssh, true
}

// GetStoredSubHistoryAtHgtX - one sub-history row by address and hgtX
func (d *BlockDB) GetStoredSubHistoryAtHgtX(scrAddr []byte, hgtX []byte) (*blockrecord.StoredSubHistory, bool) {
	if blockrecord.HgtXSize != len(hgtX) {
		d.log.Errorf("hgtX has invalid length: %d", len(hgtX))
		return nil, false
	}
	hist := d.database(History)
	if nil == hist {
		return nil, false
	}

	sub := &blockrecord.StoredSubHistory{
		UniqueKey: append([]byte(nil), scrAddr...),
	}
	copy(sub.HgtX[:], hgtX)
	found := false

	_ = hist.View(func(tx *storage.Tx) error {
		value := tx.Get(sub.DBKey())
		if nil == value {
			return nil
		}
		if err := sub.Deserialize(value); nil != err {
			d.log.Errorf("corrupt sub-history row for %x at %x: %s", scrAddr, hgtX, err)
			return nil
		}
		found = true
		return nil
	})

	if !found {
		return nil, false
	}
	return sub, true
}

// FetchStoredSubHistory - pull one sub-history into the parent SSH's
// map, optionally creating an empty one when absent
//
// does not touch the summary's balance or txio count; it only fills in
// data the SSH is expected to carry
func (d *BlockDB) FetchStoredSubHistory(ssh *blockrecord.StoredScriptHistory, hgtX []byte, createIfDNE bool, forceReadDB bool) bool {
	if blockrecord.HgtXSize != len(hgtX) {
		return false
	}
	var key [blockrecord.HgtXSize]byte
	copy(key[:], hgtX)

	if !forceReadDB {
		if _, ok := ssh.SubHistMap[key]; ok {
			return true
		}
	}

	sub, ok := d.GetStoredSubHistoryAtHgtX(ssh.UniqueKey, hgtX)
	if !ok {
		if !createIfDNE {
			return false
		}
		sub = &blockrecord.StoredSubHistory{
			UniqueKey: ssh.UniqueKey,
		}
		copy(sub.HgtX[:], hgtX)
	}

	ssh.MergeSubHistory(sub)
	return true
}

// GetSSHSummary - per-height txio counts for an address up to endBlock
func (d *BlockDB) GetSSHSummary(scrAddr []byte, endBlock uint32) (map[uint32]uint32, bool) {
	ssh, ok := d.GetStoredScriptHistory(scrAddr, 0, endBlock)
	if !ok {
		return nil, false
	}
	summary := make(map[uint32]uint32, len(ssh.SubHistMap))
	for _, sub := range ssh.SubHistMap {
		summary[sub.Height()] = uint32(len(sub.Txios))
	}
	return summary, true
}

// BalanceForScrAddr - total unspent value recorded in the summary row
func (d *BlockDB) BalanceForScrAddr(scrAddr []byte) uint64 {
	ssh, ok := d.GetStoredScriptHistorySummary(scrAddr)
	if !ok {
		return 0
	}
	return ssh.TotalUnspent
}
