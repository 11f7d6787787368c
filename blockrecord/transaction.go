// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blockvault/blockvaultd/fault"
)

// StoredTx - one transaction inside a stored block
//
// DataCopy is opaque raw transaction bytes; whether they are a full
// serialization or a fragged one (tx-out scripts stripped) is recorded
// in the value's flag word.  StxoMap is keyed by tx-out index.
type StoredTx struct {
	Hash      chainhash.Hash
	Height    uint32
	Dup       uint8
	TxIndex   uint16
	TxVersion uint32
	Fragged   bool
	NumTxOut  uint16
	UnixTime  uint32 // zero-confirmation records only
	DataCopy  []byte
	StxoMap   map[uint16]*StoredTxOut
}

// supernode tx value layout (7-byte TXDATA key):
// flags(2) | hash(32) | numTxOut(2) | raw tx bytes
//
// the hash sits at value offset 2 so by-hash probes can compare it
// without a full deserialize
const (
	txHashOffset     = 2
	txNumTxOutOffset = txHashOffset + chainhash.HashSize
	txDataOffset     = txNumTxOutOffset + 2
)

// TxValueHashOffset - where the tx hash lives inside a tx value
const TxValueHashOffset = txHashOffset

// DBKey - the 7-byte prefixed block-data key of this tx
func (tx *StoredTx) DBKey() []byte {
	return BlkDataKey(tx.Height, tx.Dup, tx.TxIndex)
}

// DBKeyNoPrefix - the 6-byte form used inside hint lists
func (tx *StoredTx) DBKeyNoPrefix() []byte {
	return BlkDataKeyNoPrefix(tx.Height, tx.Dup, tx.TxIndex)
}

// Serialize - pack into the supernode tx value form
func (tx *StoredTx) Serialize() []byte {
	ser := TxSerFull
	if tx.Fragged {
		ser = TxSerFragged
	}
	value := make([]byte, txDataOffset, txDataOffset+len(tx.DataCopy))
	binary.BigEndian.PutUint16(value,
		packFlags(CurrentDBVersion, uint8(tx.TxVersion), ser))
	copy(value[txHashOffset:], tx.Hash[:])
	binary.BigEndian.PutUint16(value[txNumTxOutOffset:], tx.NumTxOut)
	return append(value, tx.DataCopy...)
}

// Deserialize - unpack a supernode tx value
func (tx *StoredTx) Deserialize(value []byte) error {
	if len(value) < txDataOffset {
		return fault.TruncatedRecord
	}
	_, txVersion, ser := unpackFlags(binary.BigEndian.Uint16(value))
	tx.TxVersion = uint32(txVersion)
	tx.Fragged = TxSerFragged == ser
	copy(tx.Hash[:], value[txHashOffset:])
	tx.NumTxOut = binary.BigEndian.Uint16(value[txNumTxOutOffset:])
	tx.DataCopy = make([]byte, len(value)-txDataOffset)
	copy(tx.DataCopy, value[txDataOffset:])
	return nil
}

// fullnode history tx value layout (7-byte TXDATA key):
// numTxOut(4) | hash(32)
//
// keeps ledger building off the full block blobs: the tx-out count and
// hash are available without touching the blocks sub-database
const (
	fullTxHashOffset = 4

	// FullTxValueSize - fixed size of the fullnode history tx record
	FullTxValueSize = fullTxHashOffset + chainhash.HashSize
)

// SerializeFullHistory - pack the fullnode history tx record
func (tx *StoredTx) SerializeFullHistory() []byte {
	value := make([]byte, FullTxValueSize)
	binary.BigEndian.PutUint32(value, uint32(tx.NumTxOut))
	copy(value[fullTxHashOffset:], tx.Hash[:])
	return value
}

// DeserializeFullHistory - unpack the fullnode history tx record
func (tx *StoredTx) DeserializeFullHistory(value []byte) error {
	if len(value) < FullTxValueSize {
		return fault.TruncatedRecord
	}
	tx.NumTxOut = uint16(binary.BigEndian.Uint32(value))
	copy(tx.Hash[:], value[fullTxHashOffset:])
	return nil
}

// InitAndGetStxoByIndex - fetch or create the tx-out slot for an index
func (tx *StoredTx) InitAndGetStxoByIndex(index uint16) *StoredTxOut {
	if nil == tx.StxoMap {
		tx.StxoMap = make(map[uint16]*StoredTxOut)
	}
	stxo, ok := tx.StxoMap[index]
	if !ok {
		stxo = &StoredTxOut{TxOutIndex: index}
		tx.StxoMap[index] = stxo
	}
	return stxo
}

// HaveAllTxOut - always true for a full (non-fragged) tx, whose raw
// bytes carry every tx-out; a fragged tx needs every tx-out slot
// populated
func (tx *StoredTx) HaveAllTxOut() bool {
	if !tx.Fragged {
		return true
	}
	if uint16(len(tx.StxoMap)) != tx.NumTxOut {
		return false
	}
	for i := uint16(0); i < tx.NumTxOut; i += 1 {
		if _, ok := tx.StxoMap[i]; !ok {
			return false
		}
	}
	return true
}
