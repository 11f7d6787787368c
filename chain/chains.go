// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// names of all chains
const (
	Bitcoin = "bitcoin"
	Testing = "testing"
	Local   = "local"
)

// Params - the per-chain constants the store needs at open time
type Params struct {
	Name          string
	Net           wire.BitcoinNet
	GenesisHash   chainhash.Hash
	GenesisTxHash chainhash.Hash
}

// Valid - validate a chain name
func Valid(name string) bool {
	switch name {
	case Bitcoin, Testing, Local:
		return true
	default:
		return false
	}
}

// Get - fetch the parameters for a named chain
//
// the genesis transaction hash is the merkle root of the genesis
// block, as that block carries exactly one transaction
func Get(name string) (Params, bool) {
	var p *chaincfg.Params
	switch name {
	case Bitcoin:
		p = &chaincfg.MainNetParams
	case Testing:
		p = &chaincfg.TestNet3Params
	case Local:
		p = &chaincfg.RegressionNetParams
	default:
		return Params{}, false
	}
	return Params{
		Name:          name,
		Net:           p.Net,
		GenesisHash:   *p.GenesisHash,
		GenesisTxHash: p.GenesisBlock.Header.MerkleRoot,
	}, true
}

// MagicBytes - the 4-byte on-disk form of the network magic
//
// little-endian to match the byte order the magic appears in on the
// peer-to-peer wire
func (p Params) MagicBytes() [4]byte {
	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], uint32(p.Net))
	return magic
}
