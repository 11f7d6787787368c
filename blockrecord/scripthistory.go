// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/blockvault/blockvaultd/fault"
)

// txio flag bits
const (
	txioFlagHasTxIn  byte = 0x01
	txioFlagCoinbase byte = 0x02
	txioFlagFromSelf byte = 0x04
)

// TxioPair - one output (and, once spent, its spending input) touching
// a tracked script address
type TxioPair struct {
	Value    uint64
	TxOutKey [SpenderKeySize]byte
	HasTxIn  bool
	TxInKey  [SpenderKeySize]byte
	Coinbase bool
	FromSelf bool
}

// StoredSubHistory - the txio pairs of one script address within one
// height|dup; the txio ordinal is the slice index
type StoredSubHistory struct {
	UniqueKey []byte
	HgtX      [HgtXSize]byte
	Txios     []TxioPair
}

// Height - decoded from the packed suffix
func (sub *StoredSubHistory) Height() uint32 {
	return HgtXToHeight(sub.HgtX[:])
}

// Dup - decoded from the packed suffix
func (sub *StoredSubHistory) Dup() uint8 {
	return HgtXToDup(sub.HgtX[:])
}

// DBKey - SCRIPT | uniqueKey | hgtX
func (sub *StoredSubHistory) DBKey() []byte {
	key := make([]byte, 1, 1+len(sub.UniqueKey)+HgtXSize)
	key[0] = PrefixScript
	key = append(key, sub.UniqueKey...)
	return append(key, sub.HgtX[:]...)
}

// Serialize - varint count, then per txio:
// flags(1) | value(8) | txout key(8) [| txin key(8)]
func (sub *StoredSubHistory) Serialize() []byte {
	buffer := bytes.NewBuffer(make([]byte, 0, 9+len(sub.Txios)*(1+8+2*SpenderKeySize)))
	writeVarInt(buffer, uint64(len(sub.Txios)))
	for i := range sub.Txios {
		txio := &sub.Txios[i]
		var flags byte
		if txio.HasTxIn {
			flags |= txioFlagHasTxIn
		}
		if txio.Coinbase {
			flags |= txioFlagCoinbase
		}
		if txio.FromSelf {
			flags |= txioFlagFromSelf
		}
		buffer.WriteByte(flags)
		var value [8]byte
		binary.BigEndian.PutUint64(value[:], txio.Value)
		buffer.Write(value[:])
		buffer.Write(txio.TxOutKey[:])
		if txio.HasTxIn {
			buffer.Write(txio.TxInKey[:])
		}
	}
	return buffer.Bytes()
}

// Deserialize - unpack a sub-history value
func (sub *StoredSubHistory) Deserialize(value []byte) error {
	reader := bytes.NewReader(value)
	count, err := readVarInt(reader)
	if nil != err {
		return fault.TruncatedRecord
	}
	sub.Txios = make([]TxioPair, 0, count)
	for i := uint64(0); i < count; i += 1 {
		flags, err := reader.ReadByte()
		if nil != err {
			return fault.TruncatedRecord
		}
		txio := TxioPair{
			HasTxIn:  0 != flags&txioFlagHasTxIn,
			Coinbase: 0 != flags&txioFlagCoinbase,
			FromSelf: 0 != flags&txioFlagFromSelf,
		}
		var amount [8]byte
		if _, err := io.ReadFull(reader, amount[:]); nil != err {
			return fault.TruncatedRecord
		}
		txio.Value = binary.BigEndian.Uint64(amount[:])
		if _, err := io.ReadFull(reader, txio.TxOutKey[:]); nil != err {
			return fault.TruncatedRecord
		}
		if txio.HasTxIn {
			if _, err := io.ReadFull(reader, txio.TxInKey[:]); nil != err {
				return fault.TruncatedRecord
			}
		}
		sub.Txios = append(sub.Txios, txio)
	}
	return nil
}

// StoredScriptHistory - per-address summary plus its sub-histories
//
// the summary row omits SubHistMap; sub-histories are separate rows
// keyed by the hgtX suffix so a cursor scan walks them in height order
type StoredScriptHistory struct {
	UniqueKey             []byte
	AlreadyScannedUpToBlk uint32
	TotalTxioCount        uint64
	TotalUnspent          uint64
	SubHistMap            map[[HgtXSize]byte]*StoredSubHistory
}

// IsInitialized - an SSH without a unique key is a miss marker
func (ssh *StoredScriptHistory) IsInitialized() bool {
	return len(ssh.UniqueKey) > 0
}

// DBKey - SCRIPT | uniqueKey
func (ssh *StoredScriptHistory) DBKey() []byte {
	key := make([]byte, 1, 1+len(ssh.UniqueKey))
	key[0] = PrefixScript
	return append(key, ssh.UniqueKey...)
}

// summary value layout:
// flags(2) | alreadyScannedUpToBlk(4) | totalTxioCount varint | totalUnspent(8)
const sshFixedPart = 2 + 4

// Serialize - pack the summary row
func (ssh *StoredScriptHistory) Serialize() []byte {
	buffer := bytes.NewBuffer(make([]byte, 0, sshFixedPart+9+8))
	var flags [2]byte
	binary.BigEndian.PutUint16(flags[:], packFlags(CurrentDBVersion, 0, TxSerFull))
	buffer.Write(flags[:])
	var scanned [4]byte
	binary.BigEndian.PutUint32(scanned[:], ssh.AlreadyScannedUpToBlk)
	buffer.Write(scanned[:])
	writeVarInt(buffer, ssh.TotalTxioCount)
	var unspent [8]byte
	binary.BigEndian.PutUint64(unspent[:], ssh.TotalUnspent)
	buffer.Write(unspent[:])
	return buffer.Bytes()
}

// Deserialize - unpack a summary row
func (ssh *StoredScriptHistory) Deserialize(value []byte) error {
	if len(value) < sshFixedPart+1+8 {
		return fault.TruncatedRecord
	}
	ssh.AlreadyScannedUpToBlk = binary.BigEndian.Uint32(value[2:])
	reader := bytes.NewReader(value[sshFixedPart:])
	count, err := readVarInt(reader)
	if nil != err {
		return fault.TruncatedRecord
	}
	ssh.TotalTxioCount = count
	if reader.Len() < 8 {
		return fault.TruncatedRecord
	}
	var unspent [8]byte
	if _, err := io.ReadFull(reader, unspent[:]); nil != err {
		return fault.TruncatedRecord
	}
	ssh.TotalUnspent = binary.BigEndian.Uint64(unspent[:])
	return nil
}

// MergeSubHistory - attach a sub-history to the parent map
func (ssh *StoredScriptHistory) MergeSubHistory(sub *StoredSubHistory) {
	if nil == ssh.SubHistMap {
		ssh.SubHistMap = make(map[[HgtXSize]byte]*StoredSubHistory)
	}
	ssh.SubHistMap[sub.HgtX] = sub
}
