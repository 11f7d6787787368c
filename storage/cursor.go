// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/bitmark-inc/logger"
)

// Cursor - an iterator over the ordered keyspace
//
// Every positional move marks the cursor dirty; ReadIterData clears
// the flag by capturing the current key/value pair.  Key and Value
// refuse to return anything while dirty: misuse is logged and an empty
// reference comes back.  Returned slices are owned by the engine and
// are valid only until the next move on this cursor or the end of the
// enclosing transaction.
type Cursor struct {
	cursor *bolt.Cursor

	// raw position as reported by the last move
	posKey   []byte
	posValue []byte

	// captured by ReadIterData
	currKey   []byte
	currValue []byte

	dirty bool
}

// deferred creation as the logger may not be initialised when the
// package is first referenced
var cursorLogCreate sync.Once
var cursorLog *logger.L

func cursorLogger() *logger.L {
	cursorLogCreate.Do(func() {
		cursorLog = logger.New("storage")
	})
	return cursorLog
}

// IsValid - the last move landed on a key
func (c *Cursor) IsValid() bool {
	return nil != c.posKey
}

// IsValidForPrefix - the last move landed on a key carrying the prefix tag
func (c *Cursor) IsValidForPrefix(prefix byte) bool {
	return nil != c.posKey && len(c.posKey) > 0 && c.posKey[0] == prefix
}

// ReadIterData - capture the current key/value pair and clear dirty
func (c *Cursor) ReadIterData() bool {
	if !c.IsValid() {
		c.dirty = true
		return false
	}
	c.currKey = c.posKey
	c.currValue = c.posValue
	c.dirty = false
	return true
}

// Advance - move one key forward; marks dirty, does not read
func (c *Cursor) Advance() bool {
	c.posKey, c.posValue = c.cursor.Next()
	c.dirty = true
	return c.IsValid()
}

// Retreat - move one key backward; marks dirty, does not read
func (c *Cursor) Retreat() bool {
	c.posKey, c.posValue = c.cursor.Prev()
	c.dirty = true
	return c.IsValid()
}

// AdvanceAndRead - advance then capture the new pair
func (c *Cursor) AdvanceAndRead() bool {
	if !c.Advance() {
		return false
	}
	return c.ReadIterData()
}

// AdvanceAndReadPrefix - advance, require the prefix tag, then capture
func (c *Cursor) AdvanceAndReadPrefix(prefix byte) bool {
	if !c.Advance() {
		return false
	}
	if !c.IsValidForPrefix(prefix) {
		return false
	}
	return c.ReadIterData()
}

// SeekTo - position at the first key ≥ the given key and read it
func (c *Cursor) SeekTo(key []byte) bool {
	c.posKey, c.posValue = c.cursor.Seek(key)
	c.dirty = true
	return c.ReadIterData()
}

// SeekToPrefixed - SeekTo with a leading prefix tag byte
func (c *Cursor) SeekToPrefixed(prefix byte, key []byte) bool {
	return c.SeekTo(prefixedKey(prefix, key))
}

// SeekToExact - SeekTo then require byte equality
func (c *Cursor) SeekToExact(key []byte) bool {
	if !c.SeekTo(key) {
		return false
	}
	return bytes.Equal(c.currKey, key)
}

// SeekToExactPrefixed - SeekToExact with a leading prefix tag byte
func (c *Cursor) SeekToExactPrefixed(prefix byte, key []byte) bool {
	return c.SeekToExact(prefixedKey(prefix, key))
}

// SeekToStartsWith - SeekTo then require the key to start with the
// given bytes
func (c *Cursor) SeekToStartsWith(key []byte) bool {
	if !c.SeekTo(key) {
		return false
	}
	return bytes.HasPrefix(c.currKey, key)
}

// SeekToStartsWithPrefixed - SeekToStartsWith a tag byte plus key bytes
func (c *Cursor) SeekToStartsWithPrefixed(prefix byte, key []byte) bool {
	return c.SeekToStartsWith(prefixedKey(prefix, key))
}

// SeekToBefore - position at the last key ≤ the given key and read it
func (c *Cursor) SeekToBefore(key []byte) bool {
	c.posKey, c.posValue = c.cursor.Seek(key)
	if nil == c.posKey {
		// ran off the end: the last key, if any, is ≤ key
		c.posKey, c.posValue = c.cursor.Last()
	} else if bytes.Compare(c.posKey, key) > 0 {
		c.posKey, c.posValue = c.cursor.Prev()
	}
	c.dirty = true
	return c.ReadIterData()
}

// SeekToBeforePrefixed - SeekToBefore with a leading prefix tag byte
func (c *Cursor) SeekToBeforePrefixed(prefix byte, key []byte) bool {
	return c.SeekToBefore(prefixedKey(prefix, key))
}

// SeekToFirst - position at the first key in the sub-database
func (c *Cursor) SeekToFirst() bool {
	c.posKey, c.posValue = c.cursor.First()
	c.dirty = true
	return c.ReadIterData()
}

// CheckKeyExact - the captured key equals the given key; reads first
// if dirty
func (c *Cursor) CheckKeyExact(key []byte) bool {
	if c.dirty && !c.ReadIterData() {
		return false
	}
	return bytes.Equal(c.currKey, key)
}

// CheckKeyStartsWith - the captured key starts with the given bytes;
// reads first if dirty
func (c *Cursor) CheckKeyStartsWith(key []byte) bool {
	if c.dirty && !c.ReadIterData() {
		return false
	}
	return bytes.HasPrefix(c.currKey, key)
}

// CheckKeyStartsWithPrefixed - prefix tag byte variant of the above
func (c *Cursor) CheckKeyStartsWithPrefixed(prefix byte, key []byte) bool {
	return c.CheckKeyStartsWith(prefixedKey(prefix, key))
}

// VerifyPrefix - the captured key carries the prefix tag; reads first
// if dirty
func (c *Cursor) VerifyPrefix(prefix byte) bool {
	if c.dirty && !c.ReadIterData() {
		return false
	}
	if len(c.currKey) < 1 {
		return false
	}
	return c.currKey[0] == prefix
}

// Key - the captured key; empty when the cursor is dirty
func (c *Cursor) Key() []byte {
	if c.dirty {
		cursorLogger().Error("returning dirty key ref")
		return nil
	}
	return c.currKey
}

// Value - the captured value; empty when the cursor is dirty
func (c *Cursor) Value() []byte {
	if c.dirty {
		cursorLogger().Error("returning dirty value ref")
		return nil
	}
	return c.currValue
}

func prefixedKey(prefix byte, key []byte) []byte {
	k := make([]byte, 1, len(key)+1)
	k[0] = prefix
	return append(k, key...)
}
