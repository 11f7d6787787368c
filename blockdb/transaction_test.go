// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb_test

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockvault/blockvaultd/blockdb"
	"github.com/blockvault/blockvaultd/blockrecord"
)

// mark a height as main-branch so hint probing can resolve dups
func putMainHeader(t *testing.T, store *blockdb.BlockDB, height uint32, nonce uint32) {
	sbh := makeHeader(t, height, nonce, true)
	_, err := store.PutBareHeader(sbh, true)
	require.NoError(t, err, "put header at %d", height)
}

func TestPutStoredTxRoundTrip(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileSuper)
	putMainHeader(t, store, 100, 1)

	hash := hashWithPrefix([4]byte{0x11, 0x22, 0x33, 0x44}, 0x01)
	stx := makeStoredTx(hash, 100, 0, 3, 2)
	require.NoError(t, store.PutStoredTx(stx, true), "put tx")

	fetched, ok := store.GetStoredTxAt(100, 0, 3, true)
	require.True(t, ok, "get tx")
	assert.Equal(t, hash, fetched.Hash, "hash")
	assert.Equal(t, stx.DataCopy, fetched.DataCopy, "raw bytes")
	assert.Equal(t, uint16(2), fetched.NumTxOut, "num txout")
	require.Equal(t, 2, len(fetched.StxoMap), "txout rows")
	assert.Equal(t, uint64(1000), fetched.StxoMap[0].Value, "txout 0 value")
	assert.Equal(t, uint64(2000), fetched.StxoMap[1].Value, "txout 1 value")
	assert.Equal(t, hash, fetched.StxoMap[0].ParentHash, "parent hash copy")

	// without tx-outs only the tx row is read
	fetched, ok = store.GetStoredTxAt(100, 0, 3, false)
	require.True(t, ok, "get tx only")
	assert.Equal(t, 0, len(fetched.StxoMap), "no txout rows")

	// by hash
	fetched, ok = store.GetStoredTxByHash(hash)
	require.True(t, ok, "by hash")
	assert.Equal(t, uint16(3), fetched.TxIndex, "tx index")

	// by 6-byte key
	key6 := blockrecord.BlkDataKeyNoPrefix(100, 0, 3)
	fetched, ok = store.GetStoredTx(key6)
	require.True(t, ok, "by db key")
	assert.Equal(t, hash, fetched.Hash, "hash by key")

	// tx hash lookups
	gotHash, ok := store.GetTxHashForLdbKey(key6)
	require.True(t, ok, "hash for key")
	assert.Equal(t, hash, gotHash, "embedded hash")

	gotHash, ok = store.GetTxHashForHeightAndIndex(100, 3)
	require.True(t, ok, "hash for height+index")
	assert.Equal(t, hash, gotHash, "hash via dup table")

	count, ok := store.StxoCountForTx(key6)
	require.True(t, ok, "stxo count")
	assert.Equal(t, uint32(2), count, "count")
}

// two distinct tx hashes sharing a 4-byte prefix: the hint list keeps
// both in insertion order and by-hash lookup compares full hashes
func TestTxHintCollision(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileSuper)
	putMainHeader(t, store, 100, 1)
	putMainHeader(t, store, 200, 2)

	prefix := [4]byte{0xaa, 0xbb, 0xcc, 0xdd}
	hash1 := hashWithPrefix(prefix, 0x01)
	hash2 := hashWithPrefix(prefix, 0x02)
	require.NotEqual(t, hash1, hash2, "distinct hashes")

	tx1 := makeStoredTx(hash1, 100, 0, 1, 1)
	tx2 := makeStoredTx(hash2, 200, 0, 2, 1)
	require.NoError(t, store.PutStoredTx(tx1, true), "put tx1")
	require.NoError(t, store.PutStoredTx(tx2, true), "put tx2")

	key1 := blockrecord.BlkDataKeyNoPrefix(100, 0, 1)
	key2 := blockrecord.BlkDataKeyNoPrefix(200, 0, 2)

	hints, ok := store.GetStoredTxHints(prefix[:])
	require.True(t, ok, "hint list")
	require.Equal(t, 2, hints.NumHints(), "two candidates")
	assert.Equal(t, key1, hints.DBKeyList[0], "insertion order first")
	assert.Equal(t, key2, hints.DBKeyList[1], "insertion order second")

	// the most recent put is preferred, and preferred is a member
	assert.Equal(t, key2, hints.PreferredDBKey, "preferred")
	assert.True(t, hints.Contains(hints.PreferredDBKey), "preferred in list")

	// full-hash comparison picks the right record
	fetched, ok := store.GetStoredTxByHash(hash1)
	require.True(t, ok, "tx1 by hash")
	assert.Equal(t, uint32(100), fetched.Height, "tx1 placement")

	fetched, ok = store.GetStoredTxByHash(hash2)
	require.True(t, ok, "tx2 by hash")
	assert.Equal(t, uint32(200), fetched.Height, "tx2 placement")

	// a third hash with the same prefix misses
	_, ok = store.GetStoredTxByHash(hashWithPrefix(prefix, 0x03))
	assert.False(t, ok, "missing hash")

	key, ok := store.DBKeyForTxHash(hash1)
	require.True(t, ok, "db key for hash")
	assert.Equal(t, key1, key, "resolved key")
}

func TestUpdatePreferredTxHint(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileSuper)
	putMainHeader(t, store, 100, 1)
	putMainHeader(t, store, 200, 2)

	prefix := [4]byte{0x01, 0x02, 0x03, 0x04}
	tx1 := makeStoredTx(hashWithPrefix(prefix, 1), 100, 0, 1, 1)
	tx2 := makeStoredTx(hashWithPrefix(prefix, 2), 200, 0, 2, 1)
	require.NoError(t, store.PutStoredTx(tx1, true), "put tx1")
	require.NoError(t, store.PutStoredTx(tx2, true), "put tx2")

	key1 := blockrecord.BlkDataKeyNoPrefix(100, 0, 1)

	require.NoError(t, store.UpdatePreferredTxHint(prefix[:], key1), "re-point")
	hints, _ := store.GetStoredTxHints(prefix[:])
	assert.Equal(t, key1, hints.PreferredDBKey, "preferred re-pointed")

	// a key that is not listed is rejected
	bogus := blockrecord.BlkDataKeyNoPrefix(999, 0, 9)
	assert.Error(t, store.UpdatePreferredTxHint(prefix[:], bogus), "unlisted key")
}

func TestMarkTxEntryValid(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileSuper)
	putMainHeader(t, store, 100, 1)
	putMainHeader(t, store, 200, 2)

	prefix := [4]byte{0x99, 0x88, 0x77, 0x66}
	tx1 := makeStoredTx(hashWithPrefix(prefix, 1), 100, 0, 1, 1)
	tx2 := makeStoredTx(hashWithPrefix(prefix, 2), 200, 0, 2, 1)
	require.NoError(t, store.PutStoredTx(tx1, true), "put tx1")
	require.NoError(t, store.PutStoredTx(tx2, true), "put tx2")

	key1 := blockrecord.BlkDataKeyNoPrefix(100, 0, 1)

	assert.True(t, store.MarkTxEntryValid(100, 0, 1), "mark tx1 valid")

	// the rebuilt list lives under TXHINTS with tx1 in front
	hints, ok := store.GetStoredTxHints(prefix[:])
	require.True(t, ok, "hint list still readable")
	assert.Equal(t, key1, hints.PreferredDBKey, "preferred")
	assert.Equal(t, key1, hints.DBKeyList[0], "front of list")
	assert.Equal(t, 2, hints.NumHints(), "membership unchanged")

	// an unknown placement cannot be marked
	assert.False(t, store.MarkTxEntryValid(100, 0, 55), "unknown tx")
}

// a hint pointing at a losing branch is skipped when other candidates
// exist
func TestHintSkipsLosingBranch(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileSuper)

	// height 100 has two headers; dup 0 wins
	headerA := makeHeader(t, 100, 1, true)
	headerB := makeHeader(t, 100, 2, false)
	_, err := store.PutBareHeader(headerA, true)
	require.NoError(t, err, "put A")
	_, err = store.PutBareHeader(headerB, true)
	require.NoError(t, err, "put B")

	// the same tx was stored on both branches
	prefix := [4]byte{0x55, 0x44, 0x33, 0x22}
	hash := hashWithPrefix(prefix, 9)
	losing := makeStoredTx(hash, 100, 1, 0, 1)
	winning := makeStoredTx(hash, 100, 0, 0, 1)
	require.NoError(t, store.PutStoredTx(losing, true), "put losing copy")
	require.NoError(t, store.PutStoredTx(winning, true), "put winning copy")

	fetched, ok := store.GetStoredTxByHash(hash)
	require.True(t, ok, "by hash")
	assert.Equal(t, uint8(0), fetched.Dup, "main-branch copy wins")
}

// supernode header-plus-body write and cursor reconstruction
func TestPutStoredHeaderWithBlockData(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileSuper)

	sbh := makeHeader(t, 300, 7, true)
	sbh.NumTx = 2
	sbh.StxMap = map[uint16]*blockrecord.StoredTx{
		0: makeStoredTx(hashWithPrefix([4]byte{1, 2, 3, 4}, 1), 300, 0, 0, 1),
		1: makeStoredTx(hashWithPrefix([4]byte{5, 6, 7, 8}, 2), 300, 0, 1, 2),
	}

	dup, err := store.PutStoredHeader(sbh, true, true)
	require.NoError(t, err, "put stored header")
	assert.Equal(t, uint8(0), dup, "dup")

	// blkdata top tracks main-branch block writes
	top, err := store.TopBlockHeight(blockdb.BlkData)
	require.NoError(t, err, "blkdata top")
	assert.Equal(t, uint32(300), top, "top updated")

	fetched, ok := store.GetStoredHeader(300, 0, true)
	require.True(t, ok, "reconstruct block")
	assert.Equal(t, sbh.RawHeader, fetched.RawHeader, "raw header")
	assert.Equal(t, uint32(2), fetched.NumTx, "num tx")
	require.Equal(t, 2, len(fetched.StxMap), "both txs")
	assert.Equal(t, sbh.StxMap[0].Hash, fetched.StxMap[0].Hash, "tx 0 hash")
	assert.Equal(t, sbh.StxMap[1].Hash, fetched.StxMap[1].Hash, "tx 1 hash")
	assert.Equal(t, 1, len(fetched.StxMap[0].StxoMap), "tx 0 txouts")
	assert.Equal(t, 2, len(fetched.StxMap[1].StxoMap), "tx 1 txouts")

	// header only
	fetched, ok = store.GetStoredHeader(300, 0, false)
	require.True(t, ok, "header only")
	assert.Equal(t, 0, len(fetched.StxMap), "no txs read")

	// fullnode-only API is refused
	_, err = store.PutRawBlockData([]byte{0x00}, nil)
	assert.Error(t, err, "putRawBlockData under supernode")
}

// fullnode: raw blob write, hint registration and by-hash retrieval
// through whole-block parsing
func TestFullnodeRawBlockAndTxByHash(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileFull)
	putMainHeader(t, store, 10, 1)

	block := &wire.MsgBlock{Header: *makeWireHeader(10, 1)}
	tx0 := makeWireTx(0x10, 1)
	tx1 := makeWireTx(0x20, 2)
	block.AddTransaction(tx0)
	block.AddTransaction(tx1)

	var blob bytes.Buffer
	require.NoError(t, block.Serialize(&blob), "serialize block")

	dup, err := store.PutRawBlockData(blob.Bytes(),
		func(hash chainhash.Hash) (uint32, uint8, bool, error) {
			assert.Equal(t, block.Header.BlockHash(), hash, "resolver hash")
			return 10, 0, true, nil
		})
	require.NoError(t, err, "put raw block")
	assert.Equal(t, uint8(0), dup, "dup")

	// history top tracks the main branch
	top, err := store.TopBlockHeight(blockdb.History)
	require.NoError(t, err, "history top")
	assert.Equal(t, uint32(10), top, "top updated")

	// the fullnode only hints tracked txs; register tx1 by hand
	hash1 := tx1.TxHash()
	hints := &blockrecord.StoredTxHints{}
	copy(hints.TxHashPrefix[:], hash1[:4])
	hints.DBKeyList = [][]byte{blockrecord.BlkDataKeyNoPrefix(10, 0, 1)}
	hints.PreferredDBKey = hints.DBKeyList[0]
	require.NoError(t, store.PutStoredTxHints(hints), "put hints")

	fetched, ok := store.GetStoredTxByHash(hash1)
	require.True(t, ok, "tx by hash from blob")
	assert.Equal(t, uint32(10), fetched.Height, "height")
	assert.Equal(t, uint16(1), fetched.TxIndex, "tx index")
	assert.Equal(t, uint16(2), fetched.NumTxOut, "num txout")

	// whole-block reconstruction
	sbh, ok := store.GetStoredHeader(10, 0, true)
	require.True(t, ok, "stored header")
	assert.Equal(t, uint32(2), sbh.NumTx, "num tx")
	assert.Equal(t, tx0.TxHash(), sbh.StxMap[0].Hash, "tx 0 hash")

	// hash lookup falls back to the blob when no history record exists
	gotHash, ok := store.GetTxHashForLdbKey(blockrecord.BlkDataKeyNoPrefix(10, 0, 0))
	require.True(t, ok, "hash via blob walk")
	assert.Equal(t, tx0.TxHash(), gotHash, "tx 0 hash via blob")

	// wire-level copy
	msgTx, ok := store.GetFullTxCopy(blockrecord.BlkDataKeyNoPrefix(10, 0, 1))
	require.True(t, ok, "full tx copy")
	assert.Equal(t, hash1, msgTx.TxHash(), "copied tx hash")

	// supernode-only API is refused
	err = store.PutStoredTx(makeStoredTx(hash1, 10, 0, 1, 1), true)
	assert.Error(t, err, "putStoredTx under fullnode")
}

func TestTxOutRoundTrip(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileSuper)
	putMainHeader(t, store, 500, 1)

	stxo := &blockrecord.StoredTxOut{
		Height:     500,
		Dup:        0,
		TxIndex:    2,
		TxOutIndex: 1,
		Value:      12345678,
		Script:     []byte{0x51},
		TxVersion:  1,
	}
	require.NoError(t, store.PutStoredTxOut(stxo), "put txout")

	fetched, ok := store.GetStoredTxOut(stxo.DBKeyNoPrefix())
	require.True(t, ok, "get by 8-byte key")
	assert.Equal(t, stxo.Value, fetched.Value, "value")
	assert.Equal(t, stxo.Script, fetched.Script, "script")
	assert.False(t, fetched.Spent, "unspent")

	fetched, ok = store.GetStoredTxOutMain(500, 2, 1)
	require.True(t, ok, "get via dup table")
	assert.Equal(t, stxo.Value, fetched.Value, "value via main")

	// spend it and update
	stxo.Spent = true
	copy(stxo.SpentBy[:], blockrecord.BlkDataKeyNoPrefix(600, 0, 0, 0))
	require.NoError(t, store.PutStoredTxOut(stxo), "update txout")

	fetched, ok = store.GetStoredTxOutAt(500, 0, 2, 1)
	require.True(t, ok, "get spent")
	assert.True(t, fetched.Spent, "spent flag")
	assert.Equal(t, stxo.SpentBy, fetched.SpentBy, "spender")

	_, ok = store.GetStoredTxOut([]byte{0x01, 0x02})
	assert.False(t, ok, "bad key length")
}

func TestZeroConfRoundTrip(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileSuper)

	hash := hashWithPrefix([4]byte{0xf0, 0xe0, 0xd0, 0xc0}, 5)
	stx := makeStoredTx(hash, 0, 0, 0, 2)
	stx.UnixTime = 1700000000

	zcKey := blockrecord.ZCKey(1)
	require.NoError(t, store.PutStoredZC(stx, zcKey), "put zc")

	fetched, ok := store.GetStoredZcTx(zcKey)
	require.True(t, ok, "get zc")
	assert.Equal(t, hash, fetched.Hash, "hash")
	assert.Equal(t, uint32(1700000000), fetched.UnixTime, "unix time")
	require.Equal(t, 2, len(fetched.StxoMap), "zc txouts")
	assert.Equal(t, uint64(1000), fetched.StxoMap[0].Value, "zc txout value")

	_, ok = store.GetStoredZcTx(blockrecord.ZCKey(99))
	assert.False(t, ok, "missing zc key")

	count, ok := store.StxoCountForTx(zcKey)
	require.True(t, ok, "zc stxo count")
	assert.Equal(t, uint32(2), count, "count")
}

func TestUndoDataUnimplemented(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileSuper)

	assert.False(t, store.PutStoredUndoData(&blockdb.StoredUndoData{}), "put undo")
	_, ok := store.GetStoredUndoData(1, 0)
	assert.False(t, ok, "get undo")
	_, ok = store.GetStoredUndoDataForHash(chainhash.Hash{})
	assert.False(t, ok, "get undo by hash")
}
