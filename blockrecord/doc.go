// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockrecord - keys and values of the stored record families
//
// Every key in the store begins with a one byte prefix tag naming the
// record family, followed by a family specific payload.  All integer
// fields inside keys are big-endian so that lexicographic iteration
// over the engine's keyspace walks records in logical order.
//
// The central composite is the 4-byte "hgtX": 3 bytes of block height
// with the 8-bit duplicate-id packed into the low byte.  Block data
// keys extend it with a 2-byte transaction index and a 2-byte tx-out
// index, giving 5/7/9-byte prefixed keys (4/6/8 without the tag, the
// form embedded inside other record values).
package blockrecord
