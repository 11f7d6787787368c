// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - a thin façade over the bbolt key/value engine
//
// An Env is one memory-mapped file.  A Database is a named bucket
// inside an Env, giving an ordered keyspace with single-writer,
// many-reader ACID transactions.  All byte slices handed out by a
// transaction or cursor point directly into the map and are only valid
// until the enclosing transaction ends; callers that need to keep data
// must copy eagerly.
package storage
