// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type (
	ExistsError   GenericError
	InvalidError  GenericError
	NotFoundError GenericError
	ProcessError  GenericError
)

// common errors - keep in alphabetic order
var (
	AlreadyInitialised   = ExistsError("already initialised")
	DatabaseIsNotOpen    = NotFoundError("database is not open")
	DatabaseStillOpen    = ExistsError("database is still open")
	HeaderWithoutHeight  = InvalidError("header has no height set")
	InvalidCount         = InvalidError("count is invalid")
	InvalidCursor        = InvalidError("cursor is invalid")
	InvalidKeyLength     = InvalidError("key length is invalid")
	MagicBytesNotSet     = InvalidError("magic bytes not set")
	MismatchDBType       = InvalidError("Mismatch in DB type")
	MismatchMagic        = InvalidError("magic bytes mismatch, different blockchain?")
	MismatchPruneType    = InvalidError("mismatch in prune type")
	MissingHintEntry     = NotFoundError("key not in hint list")
	NoDBInfoInBlkData    = InvalidError("no DB info in blkdata for fullnode")
	NotFullnode          = InvalidError("operation is only valid for the fullnode profile")
	NotInitialised       = NotFoundError("not initialised")
	NotSupernode         = InvalidError("operation is only valid for the supernode profile")
	OutOfRangeHeight     = InvalidError("block height is out of range")
	TruncatedRecord      = ProcessError("record value is truncated")
	UninitialisedRecord  = InvalidError("record is not initialised")
	UnrecognisedKey      = InvalidError("key is not recognised")
	WrongNetworkForChain = InvalidError("chain name is not recognised")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }

// IsErrExists - determine the class of an error
func IsErrExists(e error) bool { _, ok := e.(ExistsError); return ok }

// IsErrInvalid - check for invalid class
func IsErrInvalid(e error) bool { _, ok := e.(InvalidError); return ok }

// IsErrNotFound - check for not found class
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }

// IsErrProcess - check for process class
func IsErrProcess(e error) bool { _, ok := e.(ProcessError); return ok }
