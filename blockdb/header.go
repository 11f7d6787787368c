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

// PutBareHeader - insert or refresh a header in the HEADERS database
//
// The header's height must be set; the duplicate-id is assigned here:
// reused when the hash is already listed at that height, max+1
// otherwise, 0 for the first header at a height.  The HEADHGT row, the
// HEADHASH row and, for a main-branch header extending the chain, the
// DBInfo top are all written inside one read-write transaction.
//
// Returns the duplicate-id assigned to the header.
func (d *BlockDB) PutBareHeader(sbh *blockrecord.StoredHeader, updateDupID bool) (uint8, error) {

	if !sbh.IsInitialized() {
		d.log.Error("attempting to put uninitialised bare header into DB")
		return blockrecord.DupIDNone, fault.UninitialisedRecord
	}
	if blockrecord.HeightUnset == sbh.Height {
		return blockrecord.DupIDNone, fault.HeaderWithoutHeight
	}
	if err := blockrecord.CheckHeight(sbh.Height); nil != err {
		return blockrecord.DupIDNone, err
	}
	if (chainhash.Hash{}) == sbh.Hash {
		sbh.Hash = sbh.BlockHash()
	}

	hdrs := d.database(Headers)
	if nil == hdrs {
		return blockrecord.DupIDNone, fault.DatabaseIsNotOpen
	}

	height := sbh.Height
	dup := blockrecord.DupIDNone

	err := hdrs.Update(func(tx *storage.Tx) error {
		info, err := getStoredDBInfoTx(tx)
		if nil != err {
			return err
		}

		list := getStoredHeadHgtListTx(tx, height)

		alreadyInHgtDB := false
		needToWriteHHL := false
		if 0 == len(list.DupAndHashList) {
			dup = 0
			list.AddDupAndHash(0, sbh.Hash)
			if sbh.MainBranch {
				list.PreferredDup = 0
			}
			needToWriteHHL = true
		} else {
			maxDup := -1
			for _, entry := range list.DupAndHashList {
				if int(entry.Dup) > maxDup {
					maxDup = int(entry.Dup)
				}
				if sbh.Hash == entry.Hash {
					alreadyInHgtDB = true
					dup = entry.Dup
					if list.PreferredDup != dup && sbh.MainBranch && updateDupID {
						// listed, but not yet preferred
						list.PreferredDup = dup
						needToWriteHHL = true
					}
					break
				}
			}
			if !alreadyInHgtDB {
				needToWriteHHL = true
				dup = uint8(maxDup + 1)
				list.AddDupAndHash(dup, sbh.Hash)
				if sbh.MainBranch && updateDupID {
					list.PreferredDup = dup
				}
			}
		}

		sbh.SetKeyData(height, dup)

		if needToWriteHHL {
			if err := putStoredHeadHgtListTx(tx, list); nil != err {
				return err
			}
		}

		// overwrite the hash-indexed row, in case the dup was not
		// known when previously written
		value, err := sbh.SerializeHeadersValue()
		if nil != err {
			return err
		}
		key := headHashKey(sbh.Hash)
		if err := tx.Put(key, value); nil != err {
			return err
		}

		if sbh.MainBranch && height >= info.TopBlkHgt {
			info.TopBlkHgt = height
			info.TopBlkHash = sbh.Hash
			if err := putStoredDBInfoTx(tx, info); nil != err {
				return err
			}
		}
		return nil
	})
	if nil != err {
		return blockrecord.DupIDNone, err
	}

	if sbh.MainBranch {
		d.SetValidDupIDForHeight(height, dup, updateDupID)
	}
	return dup, nil
}

// PutStoredHeader - supernode: header plus decomposed block data
//
// Writes the bare header first, then, when withBlkData is set, the
// block record and every transaction (with tx-outs and hint upkeep)
// in a second read-write transaction on the blkdata database.  The two
// transactions commit independently; a failure in between leaves the
// bare header visible and recovery is an idempotent re-put.
func (d *BlockDB) PutStoredHeader(sbh *blockrecord.StoredHeader, withBlkData bool, updateDupID bool) (uint8, error) {

	if ProfileSuper != d.profile {
		d.log.Error("PutStoredHeader is only meant for supernode")
		return blockrecord.DupIDNone, fault.NotSupernode
	}

	dup, err := d.PutBareHeader(sbh, updateDupID)
	if nil != err {
		return dup, err
	}

	if !withBlkData {
		return dup, nil
	}

	blk := d.database(BlkData)
	if nil == blk {
		return dup, fault.DatabaseIsNotOpen
	}

	err = blk.Update(func(tx *storage.Tx) error {
		key := blockrecord.BlkDataKey(sbh.Height, sbh.Dup)
		value, err := sbh.SerializeBlkDataValue()
		if nil != err {
			return err
		}
		if err := tx.Put(key, value); nil != err {
			return err
		}

		for i := uint32(0); i < sbh.NumTx; i += 1 {
			stx, ok := sbh.StxMap[uint16(i)]
			if !ok {
				continue
			}
			stx.TxIndex = uint16(i)
			stx.Height = sbh.Height
			stx.Dup = sbh.Dup
			if err := d.putStoredTxTx(tx, stx, true); nil != err {
				return err
			}
		}

		if sbh.MainBranch {
			info, err := getStoredDBInfoTx(tx)
			if nil != err {
				return err
			}
			if sbh.Height > info.TopBlkHgt {
				info.TopBlkHgt = sbh.Height
				info.TopBlkHash = sbh.Hash
				if err := putStoredDBInfoTx(tx, info); nil != err {
					return err
				}
			}
		}
		return nil
	})
	return dup, err
}

// PutRawBlockData - fullnode: store a complete raw block as one blob
//
// The resolver callback maps the block's header hash to its canonical
// placement; the upstream organizer owns that decision.  The blob is
// written under the 5-byte block-data key and, for a main-branch block
// extending the chain, the history database's top is updated in its
// own transaction.
func (d *BlockDB) PutRawBlockData(
	rawBlock []byte,
	resolve func(hash chainhash.Hash) (height uint32, dup uint8, mainBranch bool, err error),
) (uint8, error) {

	if ProfileSuper == d.profile {
		d.log.Error("PutRawBlockData is not meant for supernode")
		return blockrecord.DupIDNone, fault.NotFullnode
	}

	var header wire.BlockHeader
	if err := header.Deserialize(bytes.NewReader(rawBlock)); nil != err {
		d.log.Errorf("undecodable raw block: %s", err)
		return blockrecord.DupIDNone, fault.TruncatedRecord
	}
	hash := header.BlockHash()

	height, dup, mainBranch, err := resolve(hash)
	if nil != err {
		return blockrecord.DupIDNone, err
	}
	if err := blockrecord.CheckHeight(height); nil != err {
		return blockrecord.DupIDNone, err
	}

	blk := d.database(BlkData)
	hist := d.database(History)
	if nil == blk || nil == hist {
		return blockrecord.DupIDNone, fault.DatabaseIsNotOpen
	}

	err = blk.Update(func(tx *storage.Tx) error {
		return tx.Put(blockrecord.BlkDataKey(height, dup), rawBlock)
	})
	if nil != err {
		return blockrecord.DupIDNone, err
	}

	if mainBranch {
		err = hist.Update(func(tx *storage.Tx) error {
			info, err := getStoredDBInfoTx(tx)
			if nil != err {
				return err
			}
			if height > info.TopBlkHgt {
				info.TopBlkHgt = height
				info.TopBlkHash = hash
				return putStoredDBInfoTx(tx, info)
			}
			return nil
		})
		if nil != err {
			return blockrecord.DupIDNone, err
		}
	}
	return dup, nil
}

// GetBareHeader - header row by hash
func (d *BlockDB) GetBareHeader(hash chainhash.Hash) (*blockrecord.StoredHeader, bool) {
	hdrs := d.database(Headers)
	if nil == hdrs {
		return nil, false
	}
	sbh := &blockrecord.StoredHeader{}
	found := false
	_ = hdrs.View(func(tx *storage.Tx) error {
		value := tx.Get(headHashKey(hash))
		if nil == value {
			return nil
		}
		if err := sbh.DeserializeHeadersValue(value); nil != err {
			d.log.Errorf("corrupt header row for %s: %s", hash, err)
			return nil
		}
		found = true
		return nil
	})
	if !found {
		return nil, false
	}
	sbh.Hash = hash
	sbh.MainBranch = sbh.Dup == d.ValidDupIDForHeight(sbh.Height)
	return sbh, true
}

// GetBareHeaderAtHeight - header row by height and duplicate-id
func (d *BlockDB) GetBareHeaderAtHeight(height uint32, dup uint8) (*blockrecord.StoredHeader, bool) {
	list, ok := d.GetStoredHeadHgtList(height)
	if !ok {
		d.log.Errorf("no headers at height %d", height)
		return nil, false
	}
	for _, entry := range list.DupAndHashList {
		if dup == entry.Dup {
			return d.GetBareHeader(entry.Hash)
		}
	}
	return nil, false
}

// GetBareHeaderMain - main-branch header row at a height
func (d *BlockDB) GetBareHeaderMain(height uint32) (*blockrecord.StoredHeader, bool) {
	dup := d.ValidDupIDForHeight(height)
	if blockrecord.DupIDNone == dup {
		d.log.Errorf("headers DB has no block at height %d", height)
		return nil, false
	}
	return d.GetBareHeaderAtHeight(height, dup)
}

// GetStoredHeader - header plus block body
//
// Supernode: position a cursor at the 5-byte block key and reconstruct
// the body by walking the tx and tx-out rows sharing the prefix.
// Fullnode: fetch the single blob, optionally parsing out the
// transactions.
func (d *BlockDB) GetStoredHeader(height uint32, dup uint8, withTx bool) (*blockrecord.StoredHeader, bool) {
	if ProfileSuper == d.profile {
		return d.getStoredHeaderSuper(height, dup, withTx)
	}
	return d.getStoredHeaderFull(height, dup, withTx)
}

func (d *BlockDB) getStoredHeaderSuper(height uint32, dup uint8, withTx bool) (*blockrecord.StoredHeader, bool) {
	blk := d.database(BlkData)
	if nil == blk {
		return nil, false
	}

	sbh := &blockrecord.StoredHeader{}
	found := false

	_ = blk.View(func(tx *storage.Tx) error {
		blkKey := blockrecord.BlkDataKey(height, dup)
		cursor := tx.NewCursor()
		if !cursor.SeekToExact(blkKey) {
			return nil
		}
		if err := sbh.DeserializeBlkDataValue(cursor.Value()); nil != err {
			d.log.Errorf("corrupt block record at %d|%d: %s", height, dup, err)
			return nil
		}
		sbh.SetKeyData(height, dup)
		sbh.MainBranch = dup == d.ValidDupIDForHeight(height)
		found = true

		if !withTx {
			return nil
		}

		sbh.StxMap = make(map[uint16]*blockrecord.StoredTx)
		if !cursor.AdvanceAndRead() {
			return nil
		}
		for cursor.CheckKeyStartsWith(blkKey) {
			kind, _, _, txIndex, _ := blockrecord.ReadBlkDataKey(cursor.Key())
			if blockrecord.KindNotBlkData == kind {
				d.log.Error("unexpected BLKDATA entry while iterating")
				return nil
			}
			if uint32(txIndex) >= sbh.NumTx {
				d.log.Errorf("invalid txIndex at height %d index %d", height, txIndex)
				return nil
			}
			stx, ok := sbh.StxMap[txIndex]
			if !ok {
				stx = &blockrecord.StoredTx{}
				sbh.StxMap[txIndex] = stx
			}
			if !d.readStoredTxAtCursor(cursor, height, dup, stx) {
				break
			}
		}
		return nil
	})

	if !found {
		return nil, false
	}
	return sbh, true
}

func (d *BlockDB) getStoredHeaderFull(height uint32, dup uint8, withTx bool) (*blockrecord.StoredHeader, bool) {
	blk := d.database(BlkData)
	if nil == blk {
		return nil, false
	}

	sbh := &blockrecord.StoredHeader{}
	found := false

	_ = blk.View(func(tx *storage.Tx) error {
		blob := tx.Get(blockrecord.BlkDataKey(height, dup))
		if nil == blob {
			return nil
		}
		if len(blob) < blockrecord.HeaderSize {
			d.log.Errorf("truncated block blob at %d|%d", height, dup)
			return nil
		}
		sbh.RawHeader = make([]byte, blockrecord.HeaderSize)
		copy(sbh.RawHeader, blob)
		sbh.NumBytes = uint32(len(blob))
		sbh.SetKeyData(height, dup)
		sbh.Hash = sbh.BlockHash()
		sbh.MainBranch = dup == d.ValidDupIDForHeight(height)
		found = true

		if !withTx {
			return nil
		}

		var block wire.MsgBlock
		if err := block.Deserialize(bytes.NewReader(blob)); nil != err {
			d.log.Errorf("undecodable block blob at %d|%d: %s", height, dup, err)
			found = false
			return nil
		}
		sbh.NumTx = uint32(len(block.Transactions))
		sbh.StxMap = make(map[uint16]*blockrecord.StoredTx)
		for i, msgTx := range block.Transactions {
			stx, err := storedTxFromMsgTx(msgTx, height, dup, uint16(i))
			if nil != err {
				d.log.Errorf("unserializable tx %d at %d|%d: %s", i, height, dup, err)
				found = false
				return nil
			}
			sbh.StxMap[uint16(i)] = stx
		}
		return nil
	})

	if !found {
		return nil, false
	}
	return sbh, true
}

// ReadAllHeaders - invoke the callback for every stored header, in
// hash order
//
// A header whose recomputed hash disagrees with its key logs a warning
// but the scan continues.
func (d *BlockDB) ReadAllHeaders(callback func(header *wire.BlockHeader, height uint32, dup uint8)) error {
	hdrs := d.database(Headers)
	if nil == hdrs {
		return fault.DatabaseIsNotOpen
	}

	return hdrs.View(func(tx *storage.Tx) error {
		cursor := tx.NewCursor()
		if !cursor.SeekToStartsWith([]byte{blockrecord.PrefixHeadHash}) {
			d.log.Warn("no headers in DB yet!")
			return nil
		}
		for {
			key := cursor.Key()
			if 1+chainhash.HashSize != len(key) {
				d.log.Errorf("header hash key is %d bytes, not 33", len(key))
			} else {
				var keyHash chainhash.Hash
				copy(keyHash[:], key[1:])

				sbh := &blockrecord.StoredHeader{}
				if err := sbh.DeserializeHeadersValue(cursor.Value()); nil != err {
					d.log.Errorf("corrupt header row for %s: %s", keyHash, err)
				} else {
					var header wire.BlockHeader
					if err := header.Deserialize(bytes.NewReader(sbh.RawHeader)); nil != err {
						d.log.Errorf("undecodable header for %s: %s", keyHash, err)
					} else {
						if computed := sbh.BlockHash(); computed != keyHash {
							d.log.Warnf(
								"corruption detected: block header hash %s does not match %s",
								keyHash, computed)
						}
						callback(&header, sbh.Height, sbh.Dup)
					}
				}
			}
			if !cursor.AdvanceAndReadPrefix(blockrecord.PrefixHeadHash) {
				break
			}
		}
		return nil
	})
}

// MarkBlockHeaderValid - flip the preferred duplicate-id by header hash
func (d *BlockDB) MarkBlockHeaderValid(hash chainhash.Hash) bool {
	hdrs := d.database(Headers)
	if nil == hdrs {
		return false
	}
	height := blockrecord.HeightUnset
	dup := blockrecord.DupIDNone
	_ = hdrs.View(func(tx *storage.Tx) error {
		value := tx.Get(headHashKey(hash))
		if nil == value {
			d.log.Errorf("invalid header hash: %s", hash)
			return nil
		}
		hgtX, err := blockrecord.HgtXFromHeadersValue(value)
		if nil != err {
			d.log.Errorf("corrupt header row for %s: %s", hash, err)
			return nil
		}
		height = blockrecord.HgtXToHeight(hgtX)
		dup = blockrecord.HgtXToDup(hgtX)
		return nil
	})
	if blockrecord.HeightUnset == height {
		return false
	}
	return d.MarkBlockHeaderValidAt(height, dup)
}

// MarkBlockHeaderValidAt - flip the preferred duplicate-id at a height
//
// Updates both the stored HEADHGT row and the in-memory height→dup
// table; list membership is never changed here.
func (d *BlockDB) MarkBlockHeaderValidAt(height uint32, dup uint8) bool {
	hdrs := d.database(Headers)
	if nil == hdrs {
		return false
	}

	marked := false
	alreadyPreferred := false

	err := hdrs.Update(func(tx *storage.Tx) error {
		list := getStoredHeadHgtListTx(tx, height)
		if list.PreferredDup == dup {
			alreadyPreferred = true
			return nil
		}
		for _, entry := range list.DupAndHashList {
			if entry.Dup == dup {
				list.PreferredDup = dup
				marked = true
				return putStoredHeadHgtListTx(tx, list)
			}
		}
		d.log.Error("header was not found in header-height list")
		return nil
	})
	if nil != err {
		d.log.Errorf("mark header valid: %s", err)
		return false
	}
	if alreadyPreferred {
		return true
	}
	if marked {
		d.SetValidDupIDForHeight(height, dup, true)
	}
	return marked
}

// GetStoredHeadHgtList - the (dup, hash) list at a height
//
// ok is false when the height has no stored row; an empty list with
// PreferredDup unset is still returned for callers that extend it
func (d *BlockDB) GetStoredHeadHgtList(height uint32) (*blockrecord.StoredHeadHgtList, bool) {
	hdrs := d.database(Headers)
	if nil == hdrs {
		return &blockrecord.StoredHeadHgtList{
			Height:       height,
			PreferredDup: blockrecord.DupIDNone,
		}, false
	}
	var list *blockrecord.StoredHeadHgtList
	found := false
	_ = hdrs.View(func(tx *storage.Tx) error {
		list = getStoredHeadHgtListTx(tx, height)
		found = len(list.DupAndHashList) > 0
		return nil
	})
	return list, found
}

// PutStoredHeadHgtList - write the (dup, hash) list for a height
func (d *BlockDB) PutStoredHeadHgtList(list *blockrecord.StoredHeadHgtList) error {
	if blockrecord.HeightUnset == list.Height {
		d.log.Error("HHL does not have a valid height to be put into DB")
		return fault.HeaderWithoutHeight
	}
	hdrs := d.database(Headers)
	if nil == hdrs {
		return fault.DatabaseIsNotOpen
	}
	return hdrs.Update(func(tx *storage.Tx) error {
		return putStoredHeadHgtListTx(tx, list)
	})
}

// transaction-scoped helpers

func headHashKey(hash chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = blockrecord.PrefixHeadHash
	copy(key[1:], hash[:])
	return key
}

func getStoredHeadHgtListTx(tx *storage.Tx, height uint32) *blockrecord.StoredHeadHgtList {
	key := append([]byte{blockrecord.PrefixHeadHgt}, blockrecord.HeightKey(height)...)
	value := tx.Get(key)
	if nil == value {
		return &blockrecord.StoredHeadHgtList{
			Height:       height,
			PreferredDup: blockrecord.DupIDNone,
		}
	}
	list, err := blockrecord.DeserializeHeadHgtList(height, value)
	if nil != err {
		return &blockrecord.StoredHeadHgtList{
			Height:       height,
			PreferredDup: blockrecord.DupIDNone,
		}
	}
	return list
}

func putStoredHeadHgtListTx(tx *storage.Tx, list *blockrecord.StoredHeadHgtList) error {
	return tx.Put(list.Key(), list.Serialize())
}
