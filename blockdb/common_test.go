// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/blockvault/blockvaultd/blockdb"
	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/chain"
)

// common test setup routines

func setupTestLogger(t *testing.T) {
	logging := logger.Configuration{
		Directory: t.TempDir(),
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}
	_ = logger.Initialise(logging)
}

func testParams() chain.Params {
	params, _ := chain.Get(chain.Local)
	return params
}

// open a fresh store in a temp directory
func setup(t *testing.T, profile blockrecord.Profile) (*blockdb.BlockDB, string) {
	setupTestLogger(t)

	baseDir := t.TempDir()
	store := openAt(t, baseDir, profile)
	return store, baseDir
}

func openAt(t *testing.T, baseDir string, profile blockrecord.Profile) *blockdb.BlockDB {
	params := testParams()
	store := blockdb.New(func() bool { return true })
	err := store.Open(baseDir, params.GenesisHash, params.GenesisTxHash,
		params.MagicBytes(), profile, blockdb.PruneNone)
	if nil != err {
		t.Fatalf("store open error: %s", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// build a deterministic raw header; the nonce keeps hashes distinct
func makeHeader(t *testing.T, height uint32, nonce uint32, mainBranch bool) *blockrecord.StoredHeader {
	wireHeader := makeWireHeader(height, nonce)

	var buffer bytes.Buffer
	if err := wireHeader.Serialize(&buffer); nil != err {
		t.Fatalf("header serialize error: %s", err)
	}

	return &blockrecord.StoredHeader{
		RawHeader:  buffer.Bytes(),
		Hash:       wireHeader.BlockHash(),
		Height:     height,
		MainBranch: mainBranch,
		NumBytes:   1000 + height,
	}
}

func makeWireHeader(height uint32, nonce uint32) *wire.BlockHeader {
	var prev, merkle chainhash.Hash
	prev[0] = byte(height)
	prev[1] = byte(height >> 8)
	merkle[0] = byte(nonce)
	return &wire.BlockHeader{
		Version:    1,
		PrevBlock:  prev,
		MerkleRoot: merkle,
		Timestamp:  time.Unix(1231006505+int64(height)*600, 0),
		Bits:       0x1d00ffff,
		Nonce:      nonce,
	}
}

// a minimal but well-formed wire transaction
func makeWireTx(seed byte, outputs int) *wire.MsgTx {
	msgTx := wire.NewMsgTx(1)
	var prevHash chainhash.Hash
	prevHash[0] = seed
	msgTx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: prevHash, Index: 0xffffffff},
		SignatureScript:  []byte{0x04, seed, 0x01, 0x02, 0x03},
		Sequence:         0xffffffff,
	})
	for i := 0; i < outputs; i += 1 {
		msgTx.AddTxOut(&wire.TxOut{
			Value:    int64(5000000000 - int64(i)*1000),
			PkScript: []byte{0x76, 0xa9, 0x14, seed, byte(i), 0x88, 0xac},
		})
	}
	return msgTx
}

// a synthetic supernode tx record with a chosen hash
func makeStoredTx(hash chainhash.Hash, height uint32, dup uint8, txIndex uint16, outputs uint16) *blockrecord.StoredTx {
	stx := &blockrecord.StoredTx{
		Hash:      hash,
		Height:    height,
		Dup:       dup,
		TxIndex:   txIndex,
		TxVersion: 1,
		NumTxOut:  outputs,
		DataCopy:  []byte{0x01, 0x00, 0x00, 0x00, byte(txIndex)},
		StxoMap:   make(map[uint16]*blockrecord.StoredTxOut),
	}
	for i := uint16(0); i < outputs; i += 1 {
		stx.StxoMap[i] = &blockrecord.StoredTxOut{
			Value:  uint64(1000 * (i + 1)),
			Script: []byte{0x76, 0xa9, 0x14, byte(height), byte(i), 0x88, 0xac},
		}
	}
	return stx
}

func hashWithPrefix(prefix [4]byte, tail byte) chainhash.Hash {
	var hash chainhash.Hash
	copy(hash[:], prefix[:])
	hash[chainhash.HashSize-1] = tail
	return hash
}
