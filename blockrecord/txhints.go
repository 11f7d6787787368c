// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"bytes"
	"io"

	"github.com/blockvault/blockvaultd/fault"
)

// TxHintKeySize - candidate keys in a hint list are the 6-byte
// no-prefix tx block-data key
const TxHintKeySize = 6

// TxHashPrefixSize - hints are indexed by the first 4 bytes of a tx hash
const TxHashPrefixSize = 4

// StoredTxHints - candidate block-data keys for one tx-hash prefix
//
// DBKeyList keeps insertion order; PreferredDBKey is a separate field
// naming the currently canonical candidate and must be a member of the
// list.  Older designs encoded "preferred" as list head, which forced
// rewrites of the whole list on every reorg; the explicit field avoids
// that.
type StoredTxHints struct {
	TxHashPrefix   [TxHashPrefixSize]byte
	DBKeyList      [][]byte
	PreferredDBKey []byte
}

// DBKey - TXHINTS | 4-byte hash prefix
func (hints *StoredTxHints) DBKey() []byte {
	key := make([]byte, 1+TxHashPrefixSize)
	key[0] = PrefixTxHints
	copy(key[1:], hints.TxHashPrefix[:])
	return key
}

// NumHints - number of candidates
func (hints *StoredTxHints) NumHints() int {
	return len(hints.DBKeyList)
}

// Contains - is a candidate key already listed
func (hints *StoredTxHints) Contains(dbKey []byte) bool {
	for _, key := range hints.DBKeyList {
		if bytes.Equal(key, dbKey) {
			return true
		}
	}
	return false
}

// Serialize - varint count, the 6-byte keys in insertion order, then
// the preferred key
func (hints *StoredTxHints) Serialize() []byte {
	buffer := bytes.NewBuffer(make([]byte, 0, 9+(len(hints.DBKeyList)+1)*TxHintKeySize))
	writeVarInt(buffer, uint64(len(hints.DBKeyList)))
	for _, key := range hints.DBKeyList {
		buffer.Write(key)
	}
	if len(hints.DBKeyList) > 0 {
		preferred := hints.PreferredDBKey
		if 0 == len(preferred) {
			preferred = hints.DBKeyList[0]
		}
		buffer.Write(preferred)
	}
	return buffer.Bytes()
}

// Deserialize - unpack a hint list
func (hints *StoredTxHints) Deserialize(value []byte) error {
	reader := bytes.NewReader(value)
	count, err := readVarInt(reader)
	if nil != err {
		return fault.TruncatedRecord
	}
	if 0 == count {
		hints.DBKeyList = nil
		hints.PreferredDBKey = nil
		return nil
	}
	if uint64(reader.Len()) < (count+1)*TxHintKeySize {
		return fault.TruncatedRecord
	}
	hints.DBKeyList = make([][]byte, 0, count)
	for i := uint64(0); i < count; i += 1 {
		key := make([]byte, TxHintKeySize)
		if _, err := io.ReadFull(reader, key); nil != err {
			return fault.TruncatedRecord
		}
		hints.DBKeyList = append(hints.DBKeyList, key)
	}
	preferred := make([]byte, TxHintKeySize)
	if _, err := io.ReadFull(reader, preferred); nil != err {
		return fault.TruncatedRecord
	}
	hints.PreferredDBKey = preferred
	return nil
}
