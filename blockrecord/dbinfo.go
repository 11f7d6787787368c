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

// Profile - node profile selecting the sub-database layout
type Profile uint8

// profiles
const (
	ProfileFull  Profile = 1 // separate headers/blocks/history/txhints files
	ProfileSuper Profile = 2 // single file, decomposed block bodies
)

func (p Profile) String() string {
	switch p {
	case ProfileFull:
		return "fullnode"
	case ProfileSuper:
		return "supernode"
	default:
		return "unknown"
	}
}

// PruneType - prune policy tag recorded in DBInfo
type PruneType uint8

// prune policies
const (
	PruneNone PruneType = 0
	PruneAll  PruneType = 1
)

func (p PruneType) String() string {
	switch p {
	case PruneNone:
		return "none"
	case PruneAll:
		return "all"
	default:
		return "unknown"
	}
}

// DBInfo - one metadata row per sub-database
type DBInfo struct {
	Magic      [4]byte
	TopBlkHgt  uint32
	TopBlkHash chainhash.Hash
	Profile    Profile
	Prune      PruneType
	Flags      uint16
}

// value layout offsets
const (
	dbInfoMagicOffset   = 0
	dbInfoTopHgtOffset  = dbInfoMagicOffset + 4
	dbInfoTopHashOffset = dbInfoTopHgtOffset + 4
	dbInfoProfileOffset = dbInfoTopHashOffset + chainhash.HashSize
	dbInfoPruneOffset   = dbInfoProfileOffset + 1
	dbInfoFlagsOffset   = dbInfoPruneOffset + 1

	// DBInfoValueSize - total serialized size
	DBInfoValueSize = dbInfoFlagsOffset + 2
)

// IsInitialized - a DBInfo with zero magic was never seeded
func (info *DBInfo) IsInitialized() bool {
	return [4]byte{} != info.Magic
}

// Serialize - pack into the on-disk value form
func (info *DBInfo) Serialize() []byte {
	value := make([]byte, DBInfoValueSize)
	copy(value[dbInfoMagicOffset:], info.Magic[:])
	binary.BigEndian.PutUint32(value[dbInfoTopHgtOffset:], info.TopBlkHgt)
	copy(value[dbInfoTopHashOffset:], info.TopBlkHash[:])
	value[dbInfoProfileOffset] = byte(info.Profile)
	value[dbInfoPruneOffset] = byte(info.Prune)
	binary.BigEndian.PutUint16(value[dbInfoFlagsOffset:], info.Flags)
	return value
}

// DeserializeDBInfo - unpack an on-disk value
func DeserializeDBInfo(value []byte) (*DBInfo, error) {
	if len(value) < DBInfoValueSize {
		return nil, fault.TruncatedRecord
	}
	info := &DBInfo{
		TopBlkHgt: binary.BigEndian.Uint32(value[dbInfoTopHgtOffset:]),
		Profile:   Profile(value[dbInfoProfileOffset]),
		Prune:     PruneType(value[dbInfoPruneOffset]),
		Flags:     binary.BigEndian.Uint16(value[dbInfoFlagsOffset:]),
	}
	copy(info.Magic[:], value[dbInfoMagicOffset:])
	copy(info.TopBlkHash[:], value[dbInfoTopHashOffset:])
	return info, nil
}
