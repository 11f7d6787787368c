// SPDX-License-Identifier: ISC
// Copyright (c) 2018-2026 Blockvault Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"encoding/binary"

	"github.com/blockvault/blockvaultd/blockrecord"
	"github.com/blockvault/blockvaultd/fault"
	"github.com/blockvault/blockvaultd/storage"
)

// zero-confirmation transactions are stored under the ZCDATA prefix
// with a caller-assigned 6-byte key; the tx value carries a trailing
// 4-byte unix time so the outer system can expire stale entries

func zcDataKey(zcKey []byte) []byte {
	key := make([]byte, 1, 1+len(zcKey))
	key[0] = blockrecord.PrefixZCData
	return append(key, zcKey...)
}

// PutStoredZC - store an unconfirmed tx and its tx-outs
func (d *BlockDB) PutStoredZC(stx *blockrecord.StoredTx, zcKey []byte) error {
	if blockrecord.ZCKeySize != len(zcKey) {
		d.log.Errorf("zc key has invalid length: %d", len(zcKey))
		return fault.InvalidKeyLength
	}

	hist := d.database(History)
	if nil == hist {
		return fault.DatabaseIsNotOpen
	}

	return hist.Update(func(tx *storage.Tx) error {
		value := stx.Serialize()
		var unixTime [4]byte
		binary.BigEndian.PutUint32(unixTime[:], stx.UnixTime)
		value = append(value, unixTime[:]...)
		if err := tx.Put(zcDataKey(zcKey), value); nil != err {
			return err
		}

		for index, stxo := range stx.StxoMap {
			stxo.TxVersion = stx.TxVersion
			stxo.TxIndex = stx.TxIndex
			stxo.TxOutIndex = index
			stxo.ParentHash = stx.Hash
			key := zcDataKey(blockrecord.ZCTxOutKey(zcKey, index))
			if err := tx.Put(key, stxo.Serialize()); nil != err {
				return err
			}
		}
		return nil
	})
}

// PutStoredZcTxOut - store one unconfirmed tx-out under its zc key
func (d *BlockDB) PutStoredZcTxOut(stxo *blockrecord.StoredTxOut, zcKey []byte) error {
	hist := d.database(History)
	if nil == hist {
		return fault.DatabaseIsNotOpen
	}
	return hist.Update(func(tx *storage.Tx) error {
		return tx.Put(zcDataKey(zcKey), stxo.Serialize())
	})
}

// GetStoredZcTx - fetch an unconfirmed tx and its tx-outs by zc key
func (d *BlockDB) GetStoredZcTx(zcKey []byte) (*blockrecord.StoredTx, bool) {
	if blockrecord.ZCKeySize != len(zcKey) {
		d.log.Errorf("zc key has invalid length: %d", len(zcKey))
		return nil, false
	}

	hist := d.database(History)
	if nil == hist {
		return nil, false
	}

	stx := &blockrecord.StoredTx{}
	found := false

	_ = hist.View(func(tx *storage.Tx) error {
		fullKey := zcDataKey(zcKey)
		cursor := tx.NewCursor()
		if !cursor.SeekToExact(fullKey) {
			d.log.Errorf("DB does not have the requested ZC tx (%x)", zcKey)
			return nil
		}

		for {
			if !cursor.CheckKeyStartsWith(fullKey) {
				break
			}
			key := cursor.Key()
			switch len(key) {
			case 1 + blockrecord.ZCKeySize:
				value := cursor.Value()
				if len(value) < 4 {
					d.log.Errorf("truncated ZC tx at %x", zcKey)
					return nil
				}
				if err := stx.Deserialize(value[:len(value)-4]); nil != err {
					d.log.Errorf("corrupt ZC tx at %x: %s", zcKey, err)
					return nil
				}
				stx.UnixTime = binary.BigEndian.Uint32(value[len(value)-4:])
				found = true
			case 1 + blockrecord.ZCKeySize + blockrecord.TxOutIdxSize:
				txOutIndex := binary.BigEndian.Uint16(key[1+blockrecord.ZCKeySize:])
				stxo := stx.InitAndGetStxoByIndex(txOutIndex)
				if err := stxo.Deserialize(cursor.Value()); nil != err {
					d.log.Errorf("corrupt ZC tx-out at %x|%d: %s", zcKey, txOutIndex, err)
					return nil
				}
				stxo.TxOutIndex = txOutIndex
				stxo.ParentHash = stx.Hash
				stxo.TxVersion = stx.TxVersion
			default:
				d.log.Error("unexpected ZCDATA entry while iterating")
				return nil
			}

			if !cursor.AdvanceAndReadPrefix(blockrecord.PrefixZCData) {
				break
			}
		}
		return nil
	})

	if !found {
		return nil, false
	}
	return stx, true
}
