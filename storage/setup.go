// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/blockvault/blockvaultd/fault"
)

// Env - one key/value engine file
type Env struct {
	path string
	db   *bolt.DB
}

// OpenEnv - open or create an engine file
func OpenEnv(path string) (*Env, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if nil != err {
		return nil, err
	}
	return &Env{
		path: path,
		db:   db,
	}, nil
}

// Path - the file backing this environment
func (e *Env) Path() string {
	return e.path
}

// Close - close the environment; safe to call redundantly
func (e *Env) Close() error {
	if nil == e.db {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

// Remove - delete the backing file; the environment must be closed
func (e *Env) Remove() error {
	if nil != e.db {
		return fault.DatabaseStillOpen
	}
	return os.RemoveAll(e.path)
}

// Database - a named sub-database (bucket) inside an environment
type Database struct {
	env  *Env
	name []byte
}

// Database - open a sub-database, creating its bucket if absent
func (e *Env) Database(name string) (*Database, error) {
	if nil == e.db {
		return nil, fault.DatabaseIsNotOpen
	}
	err := e.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if nil != err {
		return nil, err
	}
	return &Database{
		env:  e,
		name: []byte(name),
	}, nil
}

// Probe - read a single key from a named bucket without creating the
// bucket; returns nil when either the bucket or the key is absent
//
// the result is copied, so it remains valid after the call
func (e *Env) Probe(name string, key []byte) ([]byte, error) {
	if nil == e.db {
		return nil, fault.DatabaseIsNotOpen
	}
	var value []byte
	err := e.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if nil == b {
			return nil
		}
		v := b.Get(key)
		if nil != v {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	return value, nil
}

// Name - the bucket name of this sub-database
func (d *Database) Name() string {
	return string(d.name)
}

// Env - the environment this sub-database lives in
func (d *Database) Env() *Env {
	return d.env
}

// View - run a read-only transaction; the Tx and anything it hands
// out are invalid once fn returns
func (d *Database) View(fn func(tx *Tx) error) error {
	if nil == d.env.db {
		return fault.DatabaseIsNotOpen
	}
	return d.env.db.View(func(btx *bolt.Tx) error {
		b := btx.Bucket(d.name)
		if nil == b {
			return fault.DatabaseIsNotOpen
		}
		return fn(&Tx{bucket: b, writable: false})
	})
}

// Update - run a read-write transaction; commits when fn returns nil,
// rolls back every write when fn returns an error
func (d *Database) Update(fn func(tx *Tx) error) error {
	if nil == d.env.db {
		return fault.DatabaseIsNotOpen
	}
	return d.env.db.Update(func(btx *bolt.Tx) error {
		b := btx.Bucket(d.name)
		if nil == b {
			return fault.DatabaseIsNotOpen
		}
		return fn(&Tx{bucket: b, writable: true})
	})
}

// Tx - a transaction scoped to one sub-database
type Tx struct {
	bucket   *bolt.Bucket
	writable bool
}

// Get - fetch the value for a key; nil when the key is absent
//
// the slice points into the memory map and is valid only until the
// transaction ends
func (t *Tx) Get(key []byte) []byte {
	return t.bucket.Get(key)
}

// Put - store a key/value pair
func (t *Tx) Put(key []byte, value []byte) error {
	return t.bucket.Put(key, value)
}

// Delete - remove a key; removing an absent key is not an error
func (t *Tx) Delete(key []byte) error {
	return t.bucket.Delete(key)
}

// ForEach - visit every key/value pair in key order
func (t *Tx) ForEach(fn func(key []byte, value []byte) error) error {
	return t.bucket.ForEach(fn)
}

// NewCursor - create a cursor over this sub-database's keyspace
//
// the cursor starts dirty; position it with one of the seek calls
func (t *Tx) NewCursor() *Cursor {
	return &Cursor{
		cursor: t.bucket.Cursor(),
		dirty:  true,
	}
}
