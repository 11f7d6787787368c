// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"encoding/binary"

	"github.com/blockvault/blockvaultd/fault"
)

// prefix tags - first byte of every stored key
//
// numeric values are part of the on-disk format and must not change
const (
	PrefixDBInfo    byte = 0x00 // per sub-database metadata
	PrefixTxData    byte = 0x01 // block / tx / tx-out records
	PrefixScript    byte = 0x02 // script history and sub-history
	PrefixTxHints   byte = 0x03 // tx-hash prefix hint lists
	PrefixTrieNodes byte = 0x04 // reserved
	PrefixCount     byte = 0x05 // reserved
	PrefixZCData    byte = 0x06 // zero-confirmation records
	PrefixHeadHash  byte = 0x07 // header by hash
	PrefixHeadHgt   byte = 0x08 // per-height dup/hash lists
	PrefixUndoData  byte = 0x09 // reserved for undo records
)

// field sizes
const (
	HgtXSize     = 4 // packed height|dup
	TxIndexSize  = 2
	TxOutIdxSize = 2

	// MaxHeight - heights occupy 3 bytes of the hgtX
	MaxHeight = 0x00ffffff

	// DupIDNone - marker for "no duplicate-id assigned"
	DupIDNone uint8 = 0xff
)

// BlkDataKind - what a block-data key addresses, derived from length
type BlkDataKind int

// key kinds
const (
	KindNotBlkData BlkDataKind = iota
	KindBlock
	KindTx
	KindTxOut
)

func (k BlkDataKind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindTx:
		return "tx"
	case KindTxOut:
		return "txout"
	default:
		return "not-blkdata"
	}
}

// HeightDupToHgtX - pack a height and duplicate-id into 4 bytes
//
// big-endian: height in bits 31..8, dup in bits 7..0
func HeightDupToHgtX(height uint32, dup uint8) []byte {
	hgtX := make([]byte, HgtXSize)
	binary.BigEndian.PutUint32(hgtX, height<<8|uint32(dup))
	return hgtX
}

// HgtXToHeight - extract the height from a packed hgtX
func HgtXToHeight(hgtX []byte) uint32 {
	return binary.BigEndian.Uint32(hgtX) >> 8
}

// HgtXToDup - extract the duplicate-id from a packed hgtX
func HgtXToDup(hgtX []byte) uint8 {
	return hgtX[HgtXSize-1]
}

// BlkDataKey - prefixed key for a block (5), tx (7) or tx-out (9)
//
// pass no index for a block key, one for a tx, two for a tx-out
func BlkDataKey(height uint32, dup uint8, indexes ...uint16) []byte {
	return append([]byte{PrefixTxData},
		BlkDataKeyNoPrefix(height, dup, indexes...)...)
}

// BlkDataKeyNoPrefix - the 4/6/8-byte form embedded inside values
func BlkDataKeyNoPrefix(height uint32, dup uint8, indexes ...uint16) []byte {
	key := make([]byte, HgtXSize, HgtXSize+len(indexes)*TxIndexSize)
	binary.BigEndian.PutUint32(key, height<<8|uint32(dup))
	for _, idx := range indexes {
		var n [TxIndexSize]byte
		binary.BigEndian.PutUint16(n[:], idx)
		key = append(key, n[:]...)
	}
	return key
}

// ReadBlkDataKey - decode a block-data key of either form
//
// an even length means no prefix tag; an odd length must carry the
// TXDATA tag.  The kind is chosen by the number of index fields
// present.
func ReadBlkDataKey(key []byte) (kind BlkDataKind, height uint32, dup uint8, txIndex uint16, txOutIndex uint16) {
	payload := key
	if 1 == len(key)&1 {
		if 0 == len(key) || key[0] != PrefixTxData {
			return KindNotBlkData, 0, 0, 0, 0
		}
		payload = key[1:]
	}
	switch len(payload) {
	case HgtXSize:
		kind = KindBlock
	case HgtXSize + TxIndexSize:
		kind = KindTx
		txIndex = binary.BigEndian.Uint16(payload[HgtXSize:])
	case HgtXSize + TxIndexSize + TxOutIdxSize:
		kind = KindTxOut
		txIndex = binary.BigEndian.Uint16(payload[HgtXSize:])
		txOutIndex = binary.BigEndian.Uint16(payload[HgtXSize+TxIndexSize:])
	default:
		return KindNotBlkData, 0, 0, 0, 0
	}
	height = HgtXToHeight(payload)
	dup = HgtXToDup(payload)
	return kind, height, dup, txIndex, txOutIndex
}

// zero-confirmation keys: 2 bytes of 0xff then a 4-byte counter, so
// they sort after the hgtX of every height below 0xffff00
const (
	ZCKeySize = 6
)

// ZCKey - build a 6-byte zero-confirmation key from a counter
func ZCKey(index uint32) []byte {
	key := make([]byte, ZCKeySize)
	key[0] = 0xff
	key[1] = 0xff
	binary.BigEndian.PutUint32(key[2:], index)
	return key
}

// IsZCKey - check the 0xffff marker of a 6-byte key
func IsZCKey(key []byte) bool {
	return len(key) >= 2 && 0xff == key[0] && 0xff == key[1]
}

// ZCTxOutKey - zero-confirmation tx-out key: zc key plus tx-out index
func ZCTxOutKey(zcKey []byte, txOutIndex uint16) []byte {
	key := make([]byte, ZCKeySize+TxOutIdxSize)
	copy(key, zcKey)
	binary.BigEndian.PutUint16(key[ZCKeySize:], txOutIndex)
	return key
}

// HeightKey - 4-byte big-endian height used by the HEADHGT family
func HeightKey(height uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, height)
	return key
}

// DBInfoKey - the fixed sentinel key for sub-database metadata
func DBInfoKey() []byte {
	return []byte{PrefixDBInfo}
}

// CheckHeight - reject heights that cannot pack into 3 bytes
func CheckHeight(height uint32) error {
	if height > MaxHeight {
		return fault.OutOfRangeHeight
	}
	return nil
}
