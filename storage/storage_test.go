// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockvault/blockvaultd/storage"
)

func TestPutGetDelete(t *testing.T) {
	_, db := setupDatabase(t)

	populate(t, db,
		[2]string{"key-one", "data-one"},
		[2]string{"key-two", "data-two"},
	)

	err := db.View(func(tx *storage.Tx) error {
		assert.Equal(t, []byte("data-one"), tx.Get([]byte("key-one")), "key-one")
		assert.Equal(t, []byte("data-two"), tx.Get([]byte("key-two")), "key-two")
		assert.Nil(t, tx.Get([]byte("/nonexistant")), "missing key")
		return nil
	})
	require.NoError(t, err, "view")

	err = db.Update(func(tx *storage.Tx) error {
		return tx.Delete([]byte("key-one"))
	})
	require.NoError(t, err, "delete")

	err = db.View(func(tx *storage.Tx) error {
		assert.Nil(t, tx.Get([]byte("key-one")), "deleted key")
		return nil
	})
	require.NoError(t, err, "view after delete")
}

func TestUpdateRollsBackOnError(t *testing.T) {
	_, db := setupDatabase(t)

	boom := assert.AnError
	err := db.Update(func(tx *storage.Tx) error {
		if err := tx.Put([]byte("doomed"), []byte("value")); nil != err {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err, "error propagated")

	_ = db.View(func(tx *storage.Tx) error {
		assert.Nil(t, tx.Get([]byte("doomed")), "write rolled back")
		return nil
	})
}

func TestReopenPersists(t *testing.T) {
	setupTestLogger(t)

	path := filepath.Join(t.TempDir(), "persist")

	env, err := storage.OpenEnv(path)
	require.NoError(t, err, "open")
	db, err := env.Database("testing")
	require.NoError(t, err, "database")
	populate(t, db, [2]string{"key", "value"})
	require.NoError(t, env.Close(), "close")

	// closing again must be harmless
	require.NoError(t, env.Close(), "redundant close")

	env, err = storage.OpenEnv(path)
	require.NoError(t, err, "reopen")
	defer env.Close()
	db, err = env.Database("testing")
	require.NoError(t, err, "database reopen")

	_ = db.View(func(tx *storage.Tx) error {
		assert.Equal(t, []byte("value"), tx.Get([]byte("key")), "persisted value")
		return nil
	})
}

func TestProbe(t *testing.T) {
	env, db := setupDatabase(t)
	populate(t, db, [2]string{"probe-key", "probe-value"})

	value, err := env.Probe("testing", []byte("probe-key"))
	require.NoError(t, err, "probe")
	assert.Equal(t, []byte("probe-value"), value, "probe value")

	value, err = env.Probe("testing", []byte("missing"))
	require.NoError(t, err, "probe missing key")
	assert.Nil(t, value, "missing key")

	value, err = env.Probe("no-such-bucket", []byte("probe-key"))
	require.NoError(t, err, "probe missing bucket")
	assert.Nil(t, value, "missing bucket")
}

func TestForEachOrder(t *testing.T) {
	_, db := setupDatabase(t)

	populate(t, db,
		[2]string{"key-two", "data-two"},
		[2]string{"key-one", "data-one"},
		[2]string{"key-three", "data-three"},
	)

	collected := make([]string, 0, 3)
	_ = db.View(func(tx *storage.Tx) error {
		return tx.ForEach(func(key []byte, _ []byte) error {
			collected = append(collected, string(key))
			return nil
		})
	})
	assert.Equal(t, []string{"key-one", "key-three", "key-two"}, collected, "lexicographic order")
}
