// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/fault"
	"github.com/blockvault/blockvaultd/storage"
)

// profile and prune re-exports so callers only import this package
const (
	ProfileFull  = blockrecord.ProfileFull
	ProfileSuper = blockrecord.ProfileSuper
	PruneNone    = blockrecord.PruneNone
	PruneAll     = blockrecord.PruneAll
)

// DB - logical sub-database selector
type DB int

// sub-databases
const (
	Headers DB = iota
	BlkData
	History
	TxHints
	dbCount
)

func (db DB) String() string {
	switch db {
	case Headers:
		return "headers"
	case BlkData:
		return "blkdata"
	case History:
		return "history"
	case TxHints:
		return "txhints"
	default:
		return "invalid"
	}
}

// on-disk file names, one per sub-database in the fullnode profile;
// the supernode profile uses only the blocks file
const (
	headersFile = "headers"
	blocksFile  = "blocks"
	historyFile = "history"
	txhintsFile = "txhints"
)

// bucket names inside the files
const (
	headersBucket      = "headers"
	fullBlocksBucket   = "blocks"
	historyBucket      = "history"
	txhintsBucket      = "txhints"
	superBlkDataBucket = "blkdata"
)

// BlockDB - the store
type BlockDB struct {
	sync.RWMutex

	log *logger.L

	baseDir       string
	magic         [4]byte
	genesisHash   chainhash.Hash
	genesisTxHash chainhash.Hash
	profile       blockrecord.Profile
	prune         blockrecord.PruneType

	envs [dbCount]*storage.Env
	dbs  [dbCount]*storage.Database

	dupLock          sync.RWMutex
	validDupByHeight []uint8

	isReady func() bool
	isOpen  bool
}

// New - create a closed store
//
// isReady is a caller-supplied predicate telling collaborators whether
// the database may be queried; the store itself never calls it
func New(isReady func() bool) *BlockDB {
	return &BlockDB{
		log:     logger.New("blockdb"),
		isReady: isReady,
	}
}

// DBReady - expose the readiness predicate to collaborators
func (d *BlockDB) DBReady() bool {
	if nil == d.isReady {
		return true
	}
	return d.isReady()
}

// IsOpen - the databases are open and verified
func (d *BlockDB) IsOpen() bool {
	d.RLock()
	defer d.RUnlock()
	return d.isOpen
}

// Profile - the active node profile
func (d *BlockDB) Profile() blockrecord.Profile {
	return d.profile
}

func (d *BlockDB) headersFilename() string {
	return filepath.Join(d.baseDir, headersFile)
}

func (d *BlockDB) blocksFilename() string {
	return filepath.Join(d.baseDir, blocksFile)
}

func (d *BlockDB) historyFilename() string {
	return filepath.Join(d.baseDir, historyFile)
}

func (d *BlockDB) txhintsFilename() string {
	return filepath.Join(d.baseDir, txhintsFile)
}

// Open - open (or create) the databases for the requested profile
//
// Fails with MismatchDBType when the on-disk layout was written by the
// other profile, and with the relevant mismatch error when an existing
// DBInfo row disagrees on magic, profile or prune policy.
func (d *BlockDB) Open(
	baseDir string,
	genesisHash chainhash.Hash,
	genesisTxHash chainhash.Hash,
	magic [4]byte,
	profile blockrecord.Profile,
	prune blockrecord.PruneType,
) error {
	d.Lock()
	defer d.Unlock()

	if [4]byte{} == magic || (chainhash.Hash{}) == genesisHash {
		d.log.Error("must set magic bytes and genesis block before opening databases")
		return fault.MagicBytesNotSet
	}

	d.baseDir = baseDir
	d.magic = magic
	d.genesisHash = genesisHash
	d.genesisTxHash = genesisTxHash
	d.profile = profile
	d.prune = prune

	// in case this is not the first attempt
	d.closeDatabases()

	d.log.Info("opening databases…")

	var err error
	if ProfileSuper == profile {
		err = d.openSupernode()
	} else {
		err = d.openFullnode()
	}
	if nil != err {
		d.closeDatabases()
		return err
	}

	if err := d.loadValidDupTable(); nil != err {
		d.closeDatabases()
		return err
	}

	d.isOpen = true
	return nil
}

func (d *BlockDB) openFullnode() error {

	env, err := storage.OpenEnv(d.blocksFilename())
	if nil != err {
		return err
	}
	d.envs[BlkData] = env

	// a supernode file keeps its DBInfo in the "blkdata" bucket;
	// its presence means this directory belongs to the other profile
	probe, err := env.Probe(superBlkDataBucket, blockrecord.DBInfoKey())
	if nil != err {
		return err
	}
	if nil != probe {
		d.log.Error("Mismatch in DB type")
		d.log.Error("Requested fullnode")
		d.log.Error("Current DB is supernode")
		return fault.MismatchDBType
	}

	if d.dbs[BlkData], err = env.Database(fullBlocksBucket); nil != err {
		return err
	}

	if d.envs[Headers], err = storage.OpenEnv(d.headersFilename()); nil != err {
		return err
	}
	if d.dbs[Headers], err = d.envs[Headers].Database(headersBucket); nil != err {
		return err
	}

	if d.envs[History], err = storage.OpenEnv(d.historyFilename()); nil != err {
		return err
	}
	if d.dbs[History], err = d.envs[History].Database(historyBucket); nil != err {
		return err
	}

	if d.envs[TxHints], err = storage.OpenEnv(d.txhintsFilename()); nil != err {
		return err
	}
	if d.dbs[TxHints], err = d.envs[TxHints].Database(txhintsBucket); nil != err {
		return err
	}

	// no DBInfo in BLKDATA or TXHINTS for fullnode
	for _, db := range []DB{Headers, History} {
		if err := d.seedOrVerifyDBInfo(db); nil != err {
			return err
		}
	}
	return nil
}

func (d *BlockDB) openSupernode() error {

	// a fullnode layout always has a separate headers file
	if _, err := os.Stat(d.headersFilename()); nil == err {
		d.log.Error("Mismatch in DB type")
		d.log.Error("Requested supernode")
		d.log.Error("Current DB is fullnode")
		return fault.MismatchDBType
	}

	env, err := storage.OpenEnv(d.blocksFilename())
	if nil != err {
		return err
	}

	// both logical databases share the one environment
	d.envs[BlkData] = env

	if d.dbs[Headers], err = env.Database(headersBucket); nil != err {
		return err
	}
	if d.dbs[BlkData], err = env.Database(superBlkDataBucket); nil != err {
		return err
	}

	for _, db := range []DB{Headers, BlkData} {
		if err := d.seedOrVerifyDBInfo(db); nil != err {
			return err
		}
	}
	return nil
}

// seed a fresh DBInfo row or verify an existing one
func (d *BlockDB) seedOrVerifyDBInfo(db DB) error {
	return d.dbs[db].Update(func(tx *storage.Tx) error {
		value := tx.Get(blockrecord.DBInfoKey())
		if nil == value {
			info := &blockrecord.DBInfo{
				Magic:      d.magic,
				TopBlkHgt:  0,
				TopBlkHash: d.genesisHash,
				Profile:    d.profile,
				Prune:      d.prune,
			}
			return tx.Put(blockrecord.DBInfoKey(), info.Serialize())
		}

		info, err := blockrecord.DeserializeDBInfo(value)
		if nil != err {
			return err
		}
		if info.Magic != d.magic {
			return fault.MismatchMagic
		}
		if info.Profile != d.profile {
			d.log.Error("Mismatch in DB type")
			d.log.Errorf("DB is in mode: %s", info.Profile)
			d.log.Errorf("expecting mode: %s", d.profile)
			return fault.MismatchDBType
		}
		if info.Prune != d.prune {
			return fault.MismatchPruneType
		}
		return nil
	})
}

// Close - close every database and environment; safe to call redundantly
func (d *BlockDB) Close() error {
	d.Lock()
	defer d.Unlock()
	return d.closeDatabases()
}

// internal: must hold lock
func (d *BlockDB) closeDatabases() error {
	var err error
	for i := DB(0); i < dbCount; i += 1 {
		if nil != d.envs[i] {
			if e := d.envs[i].Close(); nil != e {
				err = e
			}
			d.envs[i] = nil
		}
		d.dbs[i] = nil
	}
	d.isOpen = false
	return err
}

// DestroyAndReset - delete the underlying files and reopen with the
// exact same parameters
func (d *BlockDB) DestroyAndReset() error {
	d.Lock()
	files := []string{d.blocksFilename()}
	if ProfileSuper != d.profile {
		files = append(files,
			d.headersFilename(),
			d.historyFilename(),
			d.txhintsFilename(),
		)
	}
	d.closeDatabases()
	for _, file := range files {
		if err := os.RemoveAll(file); nil != err {
			d.Unlock()
			return err
		}
	}

	d.dupLock.Lock()
	d.validDupByHeight = nil
	d.dupLock.Unlock()

	d.Unlock()
	return d.Open(d.baseDir, d.genesisHash, d.genesisTxHash,
		d.magic, d.profile, d.prune)
}

// NukeHeadersDB - erase every key in HEADERS and re-seed its DBInfo
func (d *BlockDB) NukeHeadersDB() error {
	d.log.Info("destroying headers DB, to be rebuilt")

	hdrs := d.database(Headers)
	if nil == hdrs {
		return fault.DatabaseIsNotOpen
	}

	err := hdrs.Update(func(tx *storage.Tx) error {
		keys := make([][]byte, 0, 256)
		err := tx.ForEach(func(key []byte, _ []byte) error {
			k := make([]byte, len(key))
			copy(k, key)
			keys = append(keys, k)
			return nil
		})
		if nil != err {
			return err
		}
		for _, key := range keys {
			if err := tx.Delete(key); nil != err {
				return err
			}
		}

		info := &blockrecord.DBInfo{
			Magic:      d.magic,
			TopBlkHgt:  0,
			TopBlkHash: d.genesisHash,
			Profile:    d.profile,
			Prune:      d.prune,
		}
		return tx.Put(blockrecord.DBInfoKey(), info.Serialize())
	})
	if nil != err {
		return err
	}

	d.dupLock.Lock()
	d.validDupByHeight = nil
	d.dupLock.Unlock()
	return nil
}

// dbSelect - profile dispatch: the supernode keeps history and hints
// inside the blkdata database
func (d *BlockDB) dbSelect(db DB) DB {
	if ProfileSuper == d.profile {
		switch db {
		case History, TxHints:
			return BlkData
		}
	}
	return db
}

// database - the storage handle for a logical sub-database after
// profile dispatch; nil when the store is closed
func (d *BlockDB) database(db DB) *storage.Database {
	return d.dbs[d.dbSelect(db)]
}
