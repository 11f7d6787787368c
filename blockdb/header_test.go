// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb_test

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockvault/blockvaultd/blockdb"
	"github.com/blockvault/blockvaultd/blockrecord"
)

// first header at a height gets dup 0; a competing non-main header at
// the same height gets dup 1 and does not steal the preferred slot
func TestHeaderInsertDuplicates(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileFull)

	headerA := makeHeader(t, 100, 1, true)
	headerB := makeHeader(t, 100, 2, false)

	dupA, err := store.PutBareHeader(headerA, true)
	require.NoError(t, err, "put A")
	assert.Equal(t, uint8(0), dupA, "first header dup")

	dupB, err := store.PutBareHeader(headerB, true)
	require.NoError(t, err, "put B")
	assert.Equal(t, uint8(1), dupB, "second header dup")

	list, ok := store.GetStoredHeadHgtList(100)
	require.True(t, ok, "head-height list")
	require.Equal(t, 2, len(list.DupAndHashList), "two entries")
	assert.Equal(t, uint8(0), list.DupAndHashList[0].Dup, "entry 0 dup")
	assert.Equal(t, headerA.Hash, list.DupAndHashList[0].Hash, "entry 0 hash")
	assert.Equal(t, uint8(1), list.DupAndHashList[1].Dup, "entry 1 dup")
	assert.Equal(t, headerB.Hash, list.DupAndHashList[1].Hash, "entry 1 hash")
	assert.Equal(t, uint8(0), list.PreferredDup, "preferred dup")

	assert.Equal(t, uint8(0), store.ValidDupIDForHeight(100), "height→dup table")

	// re-putting an existing header reuses its dup
	dupA2, err := store.PutBareHeader(headerA, true)
	require.NoError(t, err, "re-put A")
	assert.Equal(t, uint8(0), dupA2, "reused dup")
}

// reorg: marking the other dup valid flips the preferred slot but the
// list membership is unchanged
func TestMarkBlockHeaderValid(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileFull)

	headerA := makeHeader(t, 100, 1, true)
	headerB := makeHeader(t, 100, 2, false)
	_, err := store.PutBareHeader(headerA, true)
	require.NoError(t, err, "put A")
	_, err = store.PutBareHeader(headerB, true)
	require.NoError(t, err, "put B")

	assert.True(t, store.MarkBlockHeaderValidAt(100, 1), "mark dup 1 valid")

	list, ok := store.GetStoredHeadHgtList(100)
	require.True(t, ok, "head-height list")
	assert.Equal(t, uint8(1), list.PreferredDup, "preferred flipped")
	assert.Equal(t, 2, len(list.DupAndHashList), "membership unchanged")
	assert.Equal(t, uint8(1), store.ValidDupIDForHeight(100), "table flipped")

	// marking the already-preferred dup is a no-op success
	assert.True(t, store.MarkBlockHeaderValidAt(100, 1), "idempotent")

	// a dup that is not listed cannot be marked
	assert.False(t, store.MarkBlockHeaderValidAt(100, 9), "unlisted dup")

	// by hash as well
	assert.True(t, store.MarkBlockHeaderValid(headerA.Hash), "mark by hash")
	list, _ = store.GetStoredHeadHgtList(100)
	assert.Equal(t, uint8(0), list.PreferredDup, "flipped back")
}

// the stored top only ever moves up
func TestTopOfChainMonotonicity(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileFull)

	heights := []uint32{5, 3, 9, 7}
	expected := []uint32{5, 5, 9, 9}

	for i, height := range heights {
		sbh := makeHeader(t, height, uint32(i+1), true)
		_, err := store.PutBareHeader(sbh, true)
		require.NoError(t, err, "put at height %d", height)

		top, err := store.TopBlockHeight(blockdb.Headers)
		require.NoError(t, err, "top height")
		assert.Equal(t, expected[i], top, "top after height %d", height)
	}
}

// a non-main header never touches the top
func TestNonMainDoesNotMoveTop(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileFull)

	main := makeHeader(t, 10, 1, true)
	_, err := store.PutBareHeader(main, true)
	require.NoError(t, err, "put main")

	side := makeHeader(t, 50, 2, false)
	_, err = store.PutBareHeader(side, true)
	require.NoError(t, err, "put side chain")

	top, err := store.TopBlockHeight(blockdb.Headers)
	require.NoError(t, err, "top height")
	assert.Equal(t, uint32(10), top, "top unchanged by side chain")
}

func TestGetBareHeader(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileFull)

	sbh := makeHeader(t, 77, 1, true)
	_, err := store.PutBareHeader(sbh, true)
	require.NoError(t, err, "put header")

	fetched, ok := store.GetBareHeader(sbh.Hash)
	require.True(t, ok, "by hash")
	assert.Equal(t, sbh.RawHeader, fetched.RawHeader, "raw header")
	assert.Equal(t, uint32(77), fetched.Height, "height")
	assert.Equal(t, uint8(0), fetched.Dup, "dup")
	assert.True(t, fetched.MainBranch, "main branch")

	fetched, ok = store.GetBareHeaderAtHeight(77, 0)
	require.True(t, ok, "by height and dup")
	assert.Equal(t, sbh.Hash, fetched.Hash, "hash")

	fetched, ok = store.GetBareHeaderMain(77)
	require.True(t, ok, "main at height")
	assert.Equal(t, sbh.Hash, fetched.Hash, "main hash")

	var missing chainhash.Hash
	missing[0] = 0xff
	_, ok = store.GetBareHeader(missing)
	assert.False(t, ok, "missing header")

	_, ok = store.GetBareHeaderMain(1234)
	assert.False(t, ok, "missing height")
}

func TestReadAllHeaders(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileFull)

	inserted := make(map[chainhash.Hash]uint32)
	for height := uint32(1); height <= 3; height += 1 {
		sbh := makeHeader(t, height, height, true)
		_, err := store.PutBareHeader(sbh, true)
		require.NoError(t, err, "put header %d", height)
		inserted[sbh.Hash] = height
	}

	seen := make(map[chainhash.Hash]uint32)
	err := store.ReadAllHeaders(func(header *wire.BlockHeader, height uint32, dup uint8) {
		seen[header.BlockHash()] = height
		assert.Equal(t, uint8(0), dup, "all on main branch")
	})
	require.NoError(t, err, "scan")
	assert.Equal(t, inserted, seen, "every header visited with its height")
}

func TestPutBareHeaderValidation(t *testing.T) {
	store, _ := setup(t, blockdb.ProfileFull)

	// no raw header bytes
	_, err := store.PutBareHeader(&blockrecord.StoredHeader{Height: 1}, true)
	assert.Error(t, err, "uninitialised header")

	// no height
	sbh := makeHeader(t, 5, 1, true)
	sbh.Height = blockrecord.HeightUnset
	_, err = store.PutBareHeader(sbh, true)
	assert.Error(t, err, "header without height")

	// height beyond the 3-byte packing
	sbh = makeHeader(t, 5, 1, true)
	sbh.Height = blockrecord.MaxHeight + 1
	_, err = store.PutBareHeader(sbh, true)
	assert.Error(t, err, "out of range height")
}
