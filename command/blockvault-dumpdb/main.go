// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/blockvault/blockvaultd/blockdb"
	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/chain"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// colours
const (
	keyColour = "\033[1;36m"
	valColour = "\033[1;33m"
	endColour = "\033[0m"
)

// sub-database names accepted on the command line
var databases = map[string]blockdb.DB{
	"headers": blockdb.Headers,
	"blkdata": blockdb.BlkData,
	"history": blockdb.History,
	"txhints": blockdb.TxHints,
}

// prefix tag legend for --list
var prefixTags = []struct {
	tag  byte
	name string
}{
	{blockrecord.PrefixDBInfo, "DBINFO"},
	{blockrecord.PrefixTxData, "TXDATA"},
	{blockrecord.PrefixScript, "SCRIPT"},
	{blockrecord.PrefixTxHints, "TXHINTS"},
	{blockrecord.PrefixZCData, "ZCDATA"},
	{blockrecord.PrefixHeadHash, "HEADHASH"},
	{blockrecord.PrefixHeadHgt, "HEADHGT"},
	{blockrecord.PrefixUndoData, "UNDODATA"},
}

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "list", HasArg: getoptions.NO_ARGUMENT, Short: 'l'},
		{Long: "colour", HasArg: getoptions.NO_ARGUMENT, Short: 'g'},
		{Long: "ascii", HasArg: getoptions.NO_ARGUMENT, Short: 'a'},
		{Long: "dir", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'f'},
		{Long: "chain", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
		{Long: "profile", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'p'},
		{Long: "count", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'n'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		exitwithstatus.Message("%s: version: %s", program, version)
	}

	if len(options["list"]) > 0 {
		fmt.Printf(" databases:\n")
		for name := range databases {
			fmt.Printf("       %s\n", name)
		}
		fmt.Printf(" prefix tags:\n")
		for _, p := range prefixTags {
			fmt.Printf("       %02x → %s\n", p.tag, p.name)
		}
		return
	}

	if len(options["help"]) > 0 || len(arguments) < 1 || len(arguments) > 2 || 1 != len(options["dir"]) {
		exitwithstatus.Message(
			"usage: %s [--help] [--verbose] [--list] [--colour] [--ascii] [--count=N] [--chain=NAME] [--profile=full|super] --dir=DIR database [key-prefix]",
			program)
	}

	colour := len(options["colour"]) > 0
	ascii := len(options["ascii"]) > 0
	verbose := len(options["verbose"]) > 0

	count := 10
	if len(options["count"]) > 0 {
		count, err = strconv.Atoi(options["count"][0])
		if nil != err {
			exitwithstatus.Message("%s: convert count error: %s", program, err)
		}
		if count < 1 {
			exitwithstatus.Message("%s: invalid count: %d", program, count)
		}
	}

	chainName := chain.Bitcoin
	if len(options["chain"]) > 0 {
		chainName = options["chain"][0]
	}
	params, ok := chain.Get(chainName)
	if !ok {
		exitwithstatus.Message("%s: invalid chain name: %q", program, chainName)
	}

	profile := blockdb.ProfileFull
	if len(options["profile"]) > 0 {
		switch options["profile"][0] {
		case "full":
			profile = blockdb.ProfileFull
		case "super":
			profile = blockdb.ProfileSuper
		default:
			exitwithstatus.Message("%s: invalid profile: %q", program, options["profile"][0])
		}
	}

	prefix := []byte(nil)
	if len(arguments) > 1 {
		prefix, err = hex.DecodeString(arguments[1])
		if nil != err {
			exitwithstatus.Message("%s: convert prefix error: %s", program, err)
		}
	}

	baseDir := options["dir"][0]
	dbName := arguments[0]
	db, ok := databases[dbName]
	if !ok {
		exitwithstatus.Message("%s: no database corresponding to: %q", program, dbName)
	}
	if verbose {
		fmt.Printf("read database: %s from dir: %q\n", dbName, baseDir)
	}

	logging := logger.Configuration{
		Directory: ".",
		File:      "blockvault-dumpdb.log",
		Size:      1048576,
		Count:     10,
		Console:   true,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	if err = logger.Initialise(logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	// start of main processing
	store := blockdb.New(nil)
	err = store.Open(baseDir, params.GenesisHash, params.GenesisTxHash,
		params.MagicBytes(), profile, blockdb.PruneNone)
	if nil != err {
		exitwithstatus.Message("%s: store open failed with error: %s", program, err)
	}
	defer store.Close()

	entries, ok := store.GetAllDatabaseEntries(db)
	if !ok {
		exitwithstatus.Message("%s: cannot dump database: %q", program, dbName)
	}

	ck := ""
	cv := ""
	ce := ""
	if colour {
		ck = keyColour
		cv = valColour
		ce = endColour
	}

	printed := 0
dump_entries:
	for _, e := range entries {
		if len(prefix) > 0 && !bytes.HasPrefix(e.Key, prefix) {
			continue dump_entries
		}
		if printed >= count {
			fmt.Printf("(more entries)\n")
			break dump_entries
		}
		fmt.Printf("%s%x%s → %s%x%s\n", ck, e.Key, ce, cv, e.Value, ce)
		if ascii {
			fmt.Printf("  key: %q\n  val: %q\n", e.Key, e.Value)
		}
		printed += 1
	}
	fmt.Printf("%d entries\n", printed)
}
