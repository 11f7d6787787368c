// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/fault"
	"github.com/blockvault/blockvaultd/storage"
)

// PutStoredTx - supernode: store one transaction with its tx-outs
//
// The new tx becomes the preferred candidate in its hash-prefix hint
// list.  Hint row, tx row and tx-out rows all commit in one
// read-write transaction.
func (d *BlockDB) PutStoredTx(stx *blockrecord.StoredTx, withTxOut bool) error {
	if ProfileSuper != d.profile {
		d.log.Error("PutStoredTx is only meant for supernode")
		return fault.NotSupernode
	}
	blk := d.database(BlkData)
	if nil == blk {
		return fault.DatabaseIsNotOpen
	}
	return blk.Update(func(tx *storage.Tx) error {
		return d.putStoredTxTx(tx, stx, withTxOut)
	})
}

// internal: runs inside an open read-write transaction on the blkdata
// database, where the supernode also keeps its hint lists
func (d *BlockDB) putStoredTxTx(tx *storage.Tx, stx *blockrecord.StoredTx, withTxOut bool) error {

	key6 := stx.DBKeyNoPrefix()

	// hint upkeep: the incoming tx is assumed canonical
	hints := &blockrecord.StoredTxHints{}
	copy(hints.TxHashPrefix[:], stx.Hash[:blockrecord.TxHashPrefixSize])
	hintsKey := hints.DBKey()

	needToAdd := true
	needToUpdate := false
	if value := tx.Get(hintsKey); nil != value {
		if err := hints.Deserialize(value); nil != err {
			return err
		}
		for _, listed := range hints.DBKeyList {
			if bytes.Equal(listed, key6) {
				needToAdd = false
				needToUpdate = !bytes.Equal(hints.PreferredDBKey, key6)
				hints.PreferredDBKey = key6
				break
			}
		}
	}
	if needToAdd {
		hints.DBKeyList = append(hints.DBKeyList, key6)
		hints.PreferredDBKey = key6
	}
	if needToAdd || needToUpdate {
		if err := tx.Put(hintsKey, hints.Serialize()); nil != err {
			return err
		}
	}

	if err := tx.Put(stx.DBKey(), stx.Serialize()); nil != err {
		return err
	}

	if withTxOut {
		for index, stxo := range stx.StxoMap {
			stxo.TxVersion = stx.TxVersion
			stxo.Height = stx.Height
			stxo.Dup = stx.Dup
			stxo.TxIndex = stx.TxIndex
			stxo.TxOutIndex = index
			stxo.ParentHash = stx.Hash
			if err := tx.Put(stxo.DBKey(), stxo.Serialize()); nil != err {
				return err
			}
		}
	}
	return nil
}

// UpdateStoredTx - rewrite the tx-out rows of a transaction
func (d *BlockDB) UpdateStoredTx(stx *blockrecord.StoredTx) error {
	hist := d.database(History)
	if nil == hist {
		return fault.DatabaseIsNotOpen
	}
	return hist.Update(func(tx *storage.Tx) error {
		for index, stxo := range stx.StxoMap {
			stxo.TxVersion = stx.TxVersion
			stxo.Height = stx.Height
			stxo.Dup = stx.Dup
			stxo.TxIndex = stx.TxIndex
			stxo.TxOutIndex = index
			stxo.ParentHash = stx.Hash
			if err := tx.Put(stxo.DBKey(), stxo.Serialize()); nil != err {
				return err
			}
		}
		return nil
	})
}

// GetStoredTx - fetch by 32-byte hash or by 6/7-byte block-data key
func (d *BlockDB) GetStoredTx(txHashOrDBKey []byte) (*blockrecord.StoredTx, bool) {
	switch len(txHashOrDBKey) {
	case chainhash.HashSize:
		var hash chainhash.Hash
		copy(hash[:], txHashOrDBKey)
		return d.GetStoredTxByHash(hash)
	case blockrecord.TxHintKeySize, blockrecord.TxHintKeySize + 1:
		kind, height, dup, txIndex, _ := blockrecord.ReadBlkDataKey(txHashOrDBKey)
		if blockrecord.KindTx != kind {
			d.log.Errorf("unrecognised tx key: %x", txHashOrDBKey)
			return nil, false
		}
		return d.GetStoredTxAt(height, dup, txIndex, true)
	default:
		d.log.Errorf("unrecognised input string: %x", txHashOrDBKey)
		return nil, false
	}
}

// GetStoredTxAtHeight - main-branch tx by height and index
func (d *BlockDB) GetStoredTxAtHeight(height uint32, txIndex uint16, withTxOut bool) (*blockrecord.StoredTx, bool) {
	dup := d.ValidDupIDForHeight(height)
	if blockrecord.DupIDNone == dup {
		d.log.Errorf("headers DB has no block at height %d", height)
		return nil, false
	}
	return d.GetStoredTxAt(height, dup, txIndex, withTxOut)
}

// GetStoredTxAt - tx by full placement
func (d *BlockDB) GetStoredTxAt(height uint32, dup uint8, txIndex uint16, withTxOut bool) (*blockrecord.StoredTx, bool) {
	if ProfileSuper != d.profile {
		return d.getStoredTxAtFull(height, dup, txIndex)
	}

	blk := d.database(BlkData)
	if nil == blk {
		return nil, false
	}

	stx := &blockrecord.StoredTx{
		Height:  height,
		Dup:     dup,
		TxIndex: txIndex,
	}
	found := false

	_ = blk.View(func(tx *storage.Tx) error {
		txKey := blockrecord.BlkDataKey(height, dup, txIndex)
		if !withTxOut {
			value := tx.Get(txKey)
			if nil == value {
				return nil
			}
			if err := stx.Deserialize(value); nil != err {
				d.log.Errorf("corrupt tx record at %d|%d|%d: %s", height, dup, txIndex, err)
				return nil
			}
			found = true
			return nil
		}
		cursor := tx.NewCursor()
		if !cursor.SeekToExact(txKey) {
			return nil
		}
		found = d.readStoredTxAtCursor(cursor, height, dup, stx)
		return nil
	})

	if !found {
		return nil, false
	}
	return stx, true
}

// fullnode: pull the tx out of its block blob
func (d *BlockDB) getStoredTxAtFull(height uint32, dup uint8, txIndex uint16) (*blockrecord.StoredTx, bool) {
	msgTx, ok := d.getFullTxCopyFull(height, dup, txIndex)
	if !ok {
		return nil, false
	}
	stx, err := storedTxFromMsgTx(msgTx, height, dup, txIndex)
	if nil != err {
		d.log.Errorf("unserializable tx at %d|%d|%d: %s", height, dup, txIndex, err)
		return nil, false
	}
	return stx, true
}

// GetStoredTxByHash - seek a transaction by its full hash via the hint
// table
func (d *BlockDB) GetStoredTxByHash(hash chainhash.Hash) (*blockrecord.StoredTx, bool) {
	if ProfileSuper == d.profile {
		stx, _, ok := d.getStoredTxByHashSuper(hash)
		return stx, ok
	}
	stx, _, ok := d.getStoredTxByHashFull(hash)
	return stx, ok
}

// DBKeyForTxHash - resolve a tx hash to its 6-byte block-data key
func (d *BlockDB) DBKeyForTxHash(hash chainhash.Hash) ([]byte, bool) {
	if ProfileSuper == d.profile {
		_, key, ok := d.getStoredTxByHashSuper(hash)
		return key, ok
	}
	_, key, ok := d.getStoredTxByHashFull(hash)
	return key, ok
}

// supernode: hints and tx rows share the blkdata database, so the
// whole probe runs in one read transaction: seek each candidate,
// verify the 6-byte suffix, then compare the hash embedded at value
// offset 2 before paying for a full read
func (d *BlockDB) getStoredTxByHashSuper(hash chainhash.Hash) (*blockrecord.StoredTx, []byte, bool) {
	blk := d.database(BlkData)
	if nil == blk {
		return nil, nil, false
	}

	var stx *blockrecord.StoredTx
	var dbKey []byte

	_ = blk.View(func(tx *storage.Tx) error {
		hintsValue := tx.Get(txHintsKey(hash[:blockrecord.TxHashPrefixSize]))
		if nil == hintsValue {
			return nil
		}
		hints := &blockrecord.StoredTxHints{}
		if err := hints.Deserialize(hintsValue); nil != err {
			d.log.Errorf("corrupt hint list for %x: %s", hash[:4], err)
			return nil
		}

		cursor := tx.NewCursor()
		for _, hint := range hints.DBKeyList {
			kind, height, dup, txIndex, _ := blockrecord.ReadBlkDataKey(hint)
			if blockrecord.KindTx != kind {
				continue
			}

			// a hint on a losing branch cannot be the answer unless
			// it is the only candidate
			if dup != d.ValidDupIDForHeight(height) && hints.NumHints() > 1 {
				continue
			}

			if !cursor.SeekToExactPrefixed(blockrecord.PrefixTxData, hint) {
				d.log.Errorf("hinted tx does not exist in DB: %x", hint)
				continue
			}

			value := cursor.Value()
			if len(value) < blockrecord.TxValueHashOffset+chainhash.HashSize {
				d.log.Errorf("truncated tx record at hint %x", hint)
				continue
			}
			if !bytes.Equal(value[blockrecord.TxValueHashOffset:blockrecord.TxValueHashOffset+chainhash.HashSize], hash[:]) {
				continue
			}

			candidate := &blockrecord.StoredTx{}
			if d.readStoredTxAtCursor(cursor, height, dup, candidate) {
				stx = candidate
				dbKey = blockrecord.BlkDataKeyNoPrefix(height, dup, txIndex)
			}
			return nil
		}
		return nil
	})

	if nil == stx {
		return nil, nil, false
	}
	return stx, dbKey, true
}

// fullnode: hints live in their own database and candidates are
// materialized from whole block blobs, then verified by full hash
func (d *BlockDB) getStoredTxByHashFull(hash chainhash.Hash) (*blockrecord.StoredTx, []byte, bool) {
	hints, ok := d.GetStoredTxHints(hash[:blockrecord.TxHashPrefixSize])
	if !ok {
		return nil, nil, false
	}

	for _, hint := range hints.DBKeyList {
		kind, height, dup, txIndex, _ := blockrecord.ReadBlkDataKey(hint)
		if blockrecord.KindTx != kind {
			continue
		}
		if dup != d.ValidDupIDForHeight(height) && hints.NumHints() > 1 {
			continue
		}

		msgTx, ok := d.getFullTxCopyFull(height, dup, txIndex)
		if !ok {
			d.log.Errorf("hinted tx does not exist in DB: %x", hint)
			continue
		}
		if msgTx.TxHash() != hash {
			continue
		}

		stx, err := storedTxFromMsgTx(msgTx, height, dup, txIndex)
		if nil != err {
			d.log.Errorf("unserializable tx at hint %x: %s", hint, err)
			continue
		}
		return stx, hint, true
	}
	return nil, nil, false
}

// GetFullTxCopy - materialize a complete wire transaction by 6-byte key
func (d *BlockDB) GetFullTxCopy(dbKey6 []byte) (*wire.MsgTx, bool) {
	kind, height, dup, txIndex, _ := blockrecord.ReadBlkDataKey(dbKey6)
	if blockrecord.KindTx != kind {
		d.log.Errorf("unrecognised tx key: %x", dbKey6)
		return nil, false
	}

	if ProfileSuper != d.profile {
		return d.getFullTxCopyFull(height, dup, txIndex)
	}

	stx, ok := d.GetStoredTxAt(height, dup, txIndex, true)
	if !ok {
		return nil, false
	}
	if stx.Fragged && !stx.HaveAllTxOut() {
		d.log.Errorf("fragged tx at %x is missing tx-outs", dbKey6)
		return nil, false
	}
	var msgTx wire.MsgTx
	if err := msgTx.Deserialize(bytes.NewReader(stx.DataCopy)); nil != err {
		d.log.Errorf("undecodable tx bytes at %x: %s", dbKey6, err)
		return nil, false
	}
	return &msgTx, true
}

// fullnode: read the block blob and index into it
func (d *BlockDB) getFullTxCopyFull(height uint32, dup uint8, txIndex uint16) (*wire.MsgTx, bool) {
	blk := d.database(BlkData)
	if nil == blk {
		return nil, false
	}

	var msgTx *wire.MsgTx
	_ = blk.View(func(tx *storage.Tx) error {
		blob := tx.Get(blockrecord.BlkDataKey(height, dup))
		if nil == blob {
			return nil
		}
		var block wire.MsgBlock
		if err := block.Deserialize(bytes.NewReader(blob)); nil != err {
			d.log.Errorf("undecodable block blob at %d|%d: %s", height, dup, err)
			return nil
		}
		if int(txIndex) >= len(block.Transactions) {
			d.log.Errorf("tx index %d beyond block at %d|%d", txIndex, height, dup)
			return nil
		}
		msgTx = block.Transactions[txIndex]
		return nil
	})

	if nil == msgTx {
		return nil, false
	}
	return msgTx, true
}

// GetTxHashForLdbKey - tx hash for a 6-byte block-data key
func (d *BlockDB) GetTxHashForLdbKey(dbKey6 []byte) (chainhash.Hash, bool) {
	if blockrecord.TxHintKeySize != len(dbKey6) {
		d.log.Errorf("tx key has invalid length: %d", len(dbKey6))
		return chainhash.Hash{}, false
	}

	if ProfileSuper == d.profile {
		return d.txHashFromValue(BlkData, dbKey6, blockrecord.TxValueHashOffset)
	}

	if blockrecord.IsZCKey(dbKey6) {
		return d.txHashFromValue(History, dbKey6, blockrecord.TxValueHashOffset)
	}

	// fullnode keeps a small (count | hash) record in the history
	// database for tracked transactions
	hist := d.database(History)
	if nil != hist {
		var hash chainhash.Hash
		found := false
		_ = hist.View(func(tx *storage.Tx) error {
			key := make([]byte, 1+blockrecord.TxHintKeySize)
			key[0] = blockrecord.PrefixTxData
			copy(key[1:], dbKey6)
			value := tx.Get(key)
			if len(value) >= blockrecord.FullTxValueSize {
				copy(hash[:], value[4:4+chainhash.HashSize])
				found = true
			}
			return nil
		})
		if found {
			return hash, true
		}
	}

	// fall back to pulling the full block
	kind, height, dup, txIndex, _ := blockrecord.ReadBlkDataKey(dbKey6)
	if blockrecord.KindTx != kind {
		return chainhash.Hash{}, false
	}
	msgTx, ok := d.getFullTxCopyFull(height, dup, txIndex)
	if !ok {
		return chainhash.Hash{}, false
	}
	return msgTx.TxHash(), true
}

// read a tx hash embedded at a fixed offset of a TXDATA/ZCDATA value
func (d *BlockDB) txHashFromValue(db DB, dbKey6 []byte, offset int) (chainhash.Hash, bool) {
	handle := d.database(db)
	if nil == handle {
		return chainhash.Hash{}, false
	}
	prefix := blockrecord.PrefixTxData
	if blockrecord.IsZCKey(dbKey6) {
		prefix = blockrecord.PrefixZCData
	}
	var hash chainhash.Hash
	found := false
	_ = handle.View(func(tx *storage.Tx) error {
		key := make([]byte, 1+len(dbKey6))
		key[0] = prefix
		copy(key[1:], dbKey6)
		value := tx.Get(key)
		if nil == value {
			d.log.Error("TxRef key does not exist in BLKDATA DB")
			return nil
		}
		if len(value) < offset+chainhash.HashSize {
			d.log.Errorf("truncated tx record at %x", dbKey6)
			return nil
		}
		copy(hash[:], value[offset:])
		found = true
		return nil
	})
	return hash, found
}

// GetTxHashForHeightAndIndex - main-branch tx hash by placement
func (d *BlockDB) GetTxHashForHeightAndIndex(height uint32, txIndex uint16) (chainhash.Hash, bool) {
	dup := d.ValidDupIDForHeight(height)
	if blockrecord.DupIDNone == dup {
		d.log.Errorf("headers DB has no block at height %d", height)
		return chainhash.Hash{}, false
	}
	return d.GetTxHashForLdbKey(blockrecord.BlkDataKeyNoPrefix(height, dup, txIndex))
}

// StxoCountForTx - number of tx-outs of a stored transaction
func (d *BlockDB) StxoCountForTx(dbKey6 []byte) (uint32, bool) {
	if blockrecord.TxHintKeySize != len(dbKey6) {
		d.log.Errorf("tx key has invalid length: %d", len(dbKey6))
		return 0, false
	}

	if blockrecord.IsZCKey(dbKey6) {
		stx, ok := d.GetStoredZcTx(dbKey6)
		if !ok {
			d.log.Error("no tx data at key")
			return 0, false
		}
		return uint32(stx.NumTxOut), true
	}

	stx := &blockrecord.StoredTx{}
	found := false

	if ProfileSuper == d.profile {
		blk := d.database(BlkData)
		if nil == blk {
			return 0, false
		}
		_ = blk.View(func(tx *storage.Tx) error {
			key := make([]byte, 1+blockrecord.TxHintKeySize)
			key[0] = blockrecord.PrefixTxData
			copy(key[1:], dbKey6)
			value := tx.Get(key)
			if nil == value {
				return nil
			}
			found = nil == stx.Deserialize(value)
			return nil
		})
	} else {
		hist := d.database(History)
		if nil == hist {
			return 0, false
		}
		_ = hist.View(func(tx *storage.Tx) error {
			key := make([]byte, 1+blockrecord.TxHintKeySize)
			key[0] = blockrecord.PrefixTxData
			copy(key[1:], dbKey6)
			value := tx.Get(key)
			if nil == value {
				return nil
			}
			found = nil == stx.DeserializeFullHistory(value)
			return nil
		})
	}

	if !found {
		d.log.Error("no tx data at key")
		return 0, false
	}
	return uint32(stx.NumTxOut), true
}

// internal: materialize a tx (and its tx-out rows) starting at the
// cursor's current position; the cursor may start on the tx row or on
// one of its tx-out rows, and is left on the first row past the tx
func (d *BlockDB) readStoredTxAtCursor(cursor *storage.Cursor, height uint32, dup uint8, stx *blockrecord.StoredTx) bool {
	key := cursor.Key()
	kind, keyHeight, keyDup, txIndex, _ := blockrecord.ReadBlkDataKey(key)
	if blockrecord.KindTx != kind && blockrecord.KindTxOut != kind {
		return false
	}
	if keyHeight != height || keyDup != dup {
		return false
	}

	stx.Height = keyHeight
	stx.Dup = keyDup
	stx.TxIndex = txIndex

	txPrefix := blockrecord.BlkDataKey(height, dup, txIndex)
	for {
		if !cursor.CheckKeyStartsWith(txPrefix) {
			break
		}

		kind, _, _, _, txOutIndex := blockrecord.ReadBlkDataKey(cursor.Key())
		switch kind {
		case blockrecord.KindTx:
			if err := stx.Deserialize(cursor.Value()); nil != err {
				d.log.Errorf("corrupt tx record at %d|%d|%d: %s", height, dup, txIndex, err)
				return false
			}
		case blockrecord.KindTxOut:
			stxo := stx.InitAndGetStxoByIndex(txOutIndex)
			if err := stxo.Deserialize(cursor.Value()); nil != err {
				d.log.Errorf("corrupt tx-out record at %d|%d|%d|%d: %s",
					height, dup, txIndex, txOutIndex, err)
				return false
			}
			stxo.Height = height
			stxo.Dup = dup
			stxo.TxIndex = txIndex
			stxo.TxOutIndex = txOutIndex
			stxo.ParentHash = stx.Hash
			stxo.TxVersion = stx.TxVersion
		default:
			d.log.Error("unexpected BLKDATA entry while iterating")
			return false
		}

		if !cursor.AdvanceAndReadPrefix(blockrecord.PrefixTxData) {
			break
		}
	}
	return true
}

// build a StoredTx from a parsed wire transaction
func storedTxFromMsgTx(msgTx *wire.MsgTx, height uint32, dup uint8, txIndex uint16) (*blockrecord.StoredTx, error) {
	var buffer bytes.Buffer
	if err := msgTx.Serialize(&buffer); nil != err {
		return nil, err
	}
	hash := msgTx.TxHash()
	stx := &blockrecord.StoredTx{
		Hash:      hash,
		Height:    height,
		Dup:       dup,
		TxIndex:   txIndex,
		TxVersion: uint32(msgTx.Version),
		NumTxOut:  uint16(len(msgTx.TxOut)),
		DataCopy:  buffer.Bytes(),
		StxoMap:   make(map[uint16]*blockrecord.StoredTxOut),
	}
	for i, out := range msgTx.TxOut {
		script := make([]byte, len(out.PkScript))
		copy(script, out.PkScript)
		stx.StxoMap[uint16(i)] = &blockrecord.StoredTxOut{
			Height:     height,
			Dup:        dup,
			TxIndex:    txIndex,
			TxOutIndex: uint16(i),
			Value:      uint64(out.Value),
			Script:     script,
			TxVersion:  uint32(msgTx.Version),
			ParentHash: hash,
		}
	}
	return stx, nil
}
