// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"github.com/blockvault/blockvaultd/storage"
)

// Element - one key/value pair copied out of a sub-database
type Element struct {
	Key   []byte
	Value []byte
}

// GetAllDatabaseEntries - copy every key/value pair of a sub-database
//
// only sensible on small databases; used for inspection tooling and
// test assertions
func (d *BlockDB) GetAllDatabaseEntries(db DB) ([]Element, bool) {
	if !d.IsOpen() {
		return nil, false
	}
	handle := d.database(db)
	if nil == handle {
		return nil, false
	}

	entries := make([]Element, 0, 100)
	err := handle.View(func(tx *storage.Tx) error {
		return tx.ForEach(func(key []byte, value []byte) error {
			e := Element{
				Key:   make([]byte, len(key)),
				Value: make([]byte, len(value)),
			}
			copy(e.Key, key)
			copy(e.Value, value)
			entries = append(entries, e)
			return nil
		})
	})
	if nil != err {
		d.log.Errorf("dump of %s failed: %s", db, err)
		return nil, false
	}
	return entries, true
}
