// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blockvault/blockvaultd/fault"
)

// spentness markers
const (
	txOutUnspent byte = 0x00
	txOutSpent   byte = 0x01
)

// SpenderKeySize - 8-byte block-data key of the spending tx-in
const SpenderKeySize = 8

// StoredTxOut - one transaction output
//
// ParentHash is carried in memory for callers and is not part of the
// stored value, which holds the tx-out body and its spentness; of
// TxVersion only the low two bits are stored, in the value's flag word.
type StoredTxOut struct {
	Height     uint32
	Dup        uint8
	TxIndex    uint16
	TxOutIndex uint16
	Value      uint64
	Script     []byte
	Spent      bool
	SpentBy    [SpenderKeySize]byte
	TxVersion  uint32
	ParentHash chainhash.Hash
}

// DBKey - the 9-byte prefixed block-data key of this tx-out
func (stxo *StoredTxOut) DBKey() []byte {
	return BlkDataKey(stxo.Height, stxo.Dup, stxo.TxIndex, stxo.TxOutIndex)
}

// DBKeyNoPrefix - the 8-byte form embedded in txio pairs
func (stxo *StoredTxOut) DBKeyNoPrefix() []byte {
	return BlkDataKeyNoPrefix(stxo.Height, stxo.Dup, stxo.TxIndex, stxo.TxOutIndex)
}

// Serialize - value layout:
// flags(2) | value(8) | script varint+bytes | spentness(1) [| spender(8)]
func (stxo *StoredTxOut) Serialize() []byte {
	buffer := bytes.NewBuffer(make([]byte, 0, 2+8+9+len(stxo.Script)+1+SpenderKeySize))
	var flags [2]byte
	binary.BigEndian.PutUint16(flags[:],
		packFlags(CurrentDBVersion, uint8(stxo.TxVersion), TxSerFull))
	buffer.Write(flags[:])
	var value [8]byte
	binary.BigEndian.PutUint64(value[:], stxo.Value)
	buffer.Write(value[:])
	writeVarInt(buffer, uint64(len(stxo.Script)))
	buffer.Write(stxo.Script)
	if stxo.Spent {
		buffer.WriteByte(txOutSpent)
		buffer.Write(stxo.SpentBy[:])
	} else {
		buffer.WriteByte(txOutUnspent)
	}
	return buffer.Bytes()
}

// Deserialize - unpack a tx-out value
func (stxo *StoredTxOut) Deserialize(value []byte) error {
	if len(value) < 2+8+1 {
		return fault.TruncatedRecord
	}
	_, txVersion, _ := unpackFlags(binary.BigEndian.Uint16(value))
	stxo.TxVersion = uint32(txVersion)
	reader := bytes.NewReader(value[2:])
	var amount [8]byte
	if _, err := io.ReadFull(reader, amount[:]); nil != err {
		return fault.TruncatedRecord
	}
	stxo.Value = binary.BigEndian.Uint64(amount[:])
	scriptLen, err := readVarInt(reader)
	if nil != err {
		return fault.TruncatedRecord
	}
	if uint64(reader.Len()) < scriptLen+1 {
		return fault.TruncatedRecord
	}
	stxo.Script = make([]byte, scriptLen)
	if _, err := io.ReadFull(reader, stxo.Script); nil != err && scriptLen > 0 {
		return fault.TruncatedRecord
	}
	spent, err := reader.ReadByte()
	if nil != err {
		return fault.TruncatedRecord
	}
	stxo.Spent = txOutSpent == spent
	if stxo.Spent {
		if reader.Len() < SpenderKeySize {
			return fault.TruncatedRecord
		}
		if _, err := io.ReadFull(reader, stxo.SpentBy[:]); nil != err {
			return fault.TruncatedRecord
		}
	}
	return nil
}
