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

// HeaderSize - raw Bitcoin block header length
const HeaderSize = 80

// header flag bits (HEADERS value trailer)
const (
	headerFlagMainBranch  byte = 0x01
	headerFlagBodyApplied byte = 0x02
)

// HeightUnset - sentinel for "height not assigned yet"
const HeightUnset uint32 = 0xffffffff

// StoredHeader - a block header with its store-side placement data
//
// StxMap is filled when a header is read with its transactions, in
// either profile; only a supernode put writes it back, decomposing
// every transaction into its own rows.
type StoredHeader struct {
	RawHeader   []byte // exactly 80 bytes
	Hash        chainhash.Hash
	Height      uint32
	Dup         uint8
	MainBranch  bool
	BodyApplied bool
	NumBytes    uint32
	NumTx       uint32
	StxMap      map[uint16]*StoredTx
}

// HEADERS value layout: rawHeader(80) | hgtX(4) | numBytes(4) | flags(1)
const (
	headerHgtXOffset     = HeaderSize
	headerNumBytesOffset = headerHgtXOffset + HgtXSize
	headerFlagsOffset    = headerNumBytesOffset + 4

	headersValueSize = headerFlagsOffset + 1
)

// IsInitialized - a header is usable once its raw bytes are present
func (h *StoredHeader) IsInitialized() bool {
	return HeaderSize == len(h.RawHeader)
}

// BlockHash - recompute the double-SHA256 header hash
func (h *StoredHeader) BlockHash() chainhash.Hash {
	return chainhash.DoubleHashH(h.RawHeader)
}

// SetKeyData - fix the height and duplicate-id once assigned
func (h *StoredHeader) SetKeyData(height uint32, dup uint8) {
	h.Height = height
	h.Dup = dup
}

// SerializeHeadersValue - value stored under HEADHASH
func (h *StoredHeader) SerializeHeadersValue() ([]byte, error) {
	if !h.IsInitialized() {
		return nil, fault.UninitialisedRecord
	}
	value := make([]byte, headersValueSize)
	copy(value, h.RawHeader)
	copy(value[headerHgtXOffset:], HeightDupToHgtX(h.Height, h.Dup))
	binary.BigEndian.PutUint32(value[headerNumBytesOffset:], h.NumBytes)
	var flags byte
	if h.MainBranch {
		flags |= headerFlagMainBranch
	}
	if h.BodyApplied {
		flags |= headerFlagBodyApplied
	}
	value[headerFlagsOffset] = flags
	return value, nil
}

// DeserializeHeadersValue - unpack a HEADHASH value
func (h *StoredHeader) DeserializeHeadersValue(value []byte) error {
	if len(value) < headersValueSize {
		return fault.TruncatedRecord
	}
	h.RawHeader = make([]byte, HeaderSize)
	copy(h.RawHeader, value)
	h.Height = HgtXToHeight(value[headerHgtXOffset:])
	h.Dup = HgtXToDup(value[headerHgtXOffset:])
	h.NumBytes = binary.BigEndian.Uint32(value[headerNumBytesOffset:])
	flags := value[headerFlagsOffset]
	h.MainBranch = 0 != flags&headerFlagMainBranch
	h.BodyApplied = 0 != flags&headerFlagBodyApplied
	return nil
}

// HgtXFromHeadersValue - peek the packed height|dup out of a HEADHASH
// value without a full deserialize
func HgtXFromHeadersValue(value []byte) ([]byte, error) {
	if len(value) < headerHgtXOffset+HgtXSize {
		return nil, fault.TruncatedRecord
	}
	return value[headerHgtXOffset : headerHgtXOffset+HgtXSize], nil
}

// supernode block record value layout (5-byte TXDATA key):
// flags(2) | rawHeader(80) | numTx(4) | numBytes(4)
const (
	blkHeaderRawOffset      = 2
	blkHeaderNumTxOffset    = blkHeaderRawOffset + HeaderSize
	blkHeaderNumBytesOffset = blkHeaderNumTxOffset + 4

	blkHeaderValueSize = blkHeaderNumBytesOffset + 4
)

// SerializeBlkDataValue - supernode block record value
func (h *StoredHeader) SerializeBlkDataValue() ([]byte, error) {
	if !h.IsInitialized() {
		return nil, fault.UninitialisedRecord
	}
	value := make([]byte, blkHeaderValueSize)
	binary.BigEndian.PutUint16(value, packFlags(CurrentDBVersion, 0, TxSerFull))
	copy(value[blkHeaderRawOffset:], h.RawHeader)
	binary.BigEndian.PutUint32(value[blkHeaderNumTxOffset:], h.NumTx)
	binary.BigEndian.PutUint32(value[blkHeaderNumBytesOffset:], h.NumBytes)
	return value, nil
}

// DeserializeBlkDataValue - unpack a supernode block record value
func (h *StoredHeader) DeserializeBlkDataValue(value []byte) error {
	if len(value) < blkHeaderValueSize {
		return fault.TruncatedRecord
	}
	h.RawHeader = make([]byte, HeaderSize)
	copy(h.RawHeader, value[blkHeaderRawOffset:])
	h.NumTx = binary.BigEndian.Uint32(value[blkHeaderNumTxOffset:])
	h.NumBytes = binary.BigEndian.Uint32(value[blkHeaderNumBytesOffset:])
	h.Hash = h.BlockHash()
	return nil
}
