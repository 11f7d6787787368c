// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/logger"

	"github.com/blockvault/blockvaultd/storage"
)

// common test setup routines

// configure logging for testing
func setupTestLogger(t *testing.T) {
	logging := logger.Configuration{
		Directory: t.TempDir(),
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}
	_ = logger.Initialise(logging)
}

// open a fresh environment with one sub-database
func setupDatabase(t *testing.T) (*storage.Env, *storage.Database) {
	setupTestLogger(t)

	env, err := storage.OpenEnv(filepath.Join(t.TempDir(), "test"))
	if nil != err {
		t.Fatalf("env open error: %s", err)
	}
	t.Cleanup(func() {
		_ = env.Close()
	})

	db, err := env.Database("testing")
	if nil != err {
		t.Fatalf("database open error: %s", err)
	}
	return env, db
}

// store a batch of key/value string pairs
func populate(t *testing.T, db *storage.Database, pairs ...[2]string) {
	err := db.Update(func(tx *storage.Tx) error {
		for _, pair := range pairs {
			if err := tx.Put([]byte(pair[0]), []byte(pair[1])); nil != err {
				return err
			}
		}
		return nil
	})
	if nil != err {
		t.Fatalf("populate error: %s", err)
	}
}
