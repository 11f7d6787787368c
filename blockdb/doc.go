// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockdb - typed blockchain object store
//
// Persists block headers, block bodies, per-address script histories
// and tx-hash hint lists over an ordered memory-mapped key/value
// engine, and answers range queries by cursor scans over prefixed
// composite keys.
//
// Two node profiles select the schema.  The supernode profile keeps
// everything in one file and decomposes each block into header, tx and
// tx-out rows so any of them can be fetched individually.  The
// fullnode profile keeps four files, stores each block as a single
// blob, and only tracks history/tx-out/hint rows for addresses and
// transactions the caller registers.
//
// All mutating entry points are expected to be called from a single
// writer; readers may run concurrently under the engine's
// single-writer/many-reader transaction model.
package blockdb
