// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// CurrentDBVersion - bumped only on incompatible layout changes
const CurrentDBVersion uint8 = 1

// TxSerType - how a transaction's raw bytes are stored
type TxSerType uint8

// serialization variants
const (
	TxSerFull    TxSerType = 0 // complete raw transaction
	TxSerFragged TxSerType = 1 // tx-out scripts stripped, rebuilt from tx-out rows
)

// the 16-bit flag word leading tx and tx-out values:
//
//	bits 15..12  db-version
//	bits 11..10  tx-version (low two bits only)
//	bits  9..6   serialization variant
//	bits  5..0   reserved, written as zero
func packFlags(dbVersion uint8, txVersion uint8, ser TxSerType) uint16 {
	return uint16(dbVersion&0x0f)<<12 |
		uint16(txVersion&0x03)<<10 |
		uint16(ser&0x0f)<<6
}

func unpackFlags(flags uint16) (dbVersion uint8, txVersion uint8, ser TxSerType) {
	dbVersion = uint8(flags >> 12 & 0x0f)
	txVersion = uint8(flags >> 10 & 0x03)
	ser = TxSerType(flags >> 6 & 0x0f)
	return dbVersion, txVersion, ser
}

// varint helpers wrapping the Bitcoin CompactSize encoding

func writeVarInt(buffer *bytes.Buffer, n uint64) {
	// a bytes.Buffer write cannot fail
	_ = wire.WriteVarInt(buffer, 0, n)
}

func readVarInt(reader io.Reader) (uint64, error) {
	return wire.ReadVarInt(reader, 0)
}
