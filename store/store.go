/*
 * LatticeDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package store

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/krotik/latticedb/errs"
)

/*
Store opens a bbolt-backed key-value database and guarantees every
bucket in AllBuckets exists.
*/
type Store struct {
	db *bbolt.DB
}

/*
Open opens (creating if necessary) the bbolt file at path.
*/
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errs.New(errs.ErrStorage, errors.Wrap(err, "opening bbolt file").Error())
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

/*
OpenTemporary creates a Store backed by a fresh file under os.TempDir,
for scratch or test use. The caller owns cleanup of the returned path.
*/
func OpenTemporary() (*Store, string, error) {
	f, err := os.CreateTemp("", "latticedb-*.db")
	if err != nil {
		return nil, "", errs.New(errs.ErrStorage, errors.Wrap(err, "creating temp file").Error())
	}
	path := f.Name()
	f.Close()

	s, err := Open(path)
	if err != nil {
		os.Remove(path)
		return nil, "", err
	}
	return s, path, nil
}

func (s *Store) init() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range AllBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errs.New(errs.ErrStorage, errors.Wrap(err, "creating buckets").Error())
	}
	return nil
}

/*
Close releases the underlying file.
*/
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errs.New(errs.ErrStorage, errors.Wrap(err, "closing store").Error())
	}
	return nil
}

/*
ReadTxn is a read-only view over the store, valid for the lifetime of
the callback passed to View.
*/
type ReadTxn struct {
	tx *bbolt.Tx
}

/*
View runs fn inside a read-only transaction. bbolt allows any number
of concurrent readers alongside the single WriteTxn; fn sees the state
as of the last commit.
*/
func (s *Store) View(fn func(*ReadTxn) error) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		return fn(&ReadTxn{tx: tx})
	})
	if err != nil {
		return wrapTxErr(err)
	}
	return nil
}

/*
Get reads key from bucket, returning nil if absent. The returned slice
is only valid for the lifetime of the enclosing transaction; callers
that need to retain it must copy.
*/
func (t *ReadTxn) Get(bucket, key []byte) []byte {
	return t.tx.Bucket(bucket).Get(key)
}

/*
ForEach iterates bucket in ascending key order.
*/
func (t *ReadTxn) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	return t.tx.Bucket(bucket).ForEach(fn)
}

/*
WriteTxn is bbolt's single read-write transaction, held open across a
LatticeDB Writer's lifetime until Commit or Rollback.
*/
type WriteTxn struct {
	tx *bbolt.Tx
}

/*
BeginWrite starts the store's single writable transaction. LatticeDB
enforces single-writer semantics by holding this open for the duration
of one db.Writer (spec.md §4.1).
*/
func (s *Store) BeginWrite() (*WriteTxn, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, wrapTxErr(err)
	}
	return &WriteTxn{tx: tx}, nil
}

/*
Get reads key from bucket, returning nil if absent.
*/
func (t *WriteTxn) Get(bucket, key []byte) []byte {
	return t.tx.Bucket(bucket).Get(key)
}

/*
Put writes key -> value in bucket.
*/
func (t *WriteTxn) Put(bucket, key, value []byte) error {
	if err := t.tx.Bucket(bucket).Put(key, value); err != nil {
		return wrapTxErr(err)
	}
	return nil
}

/*
Delete removes key from bucket. A missing key is not an error.
*/
func (t *WriteTxn) Delete(bucket, key []byte) error {
	if err := t.tx.Bucket(bucket).Delete(key); err != nil {
		return wrapTxErr(err)
	}
	return nil
}

/*
ForEach iterates bucket in ascending key order.
*/
func (t *WriteTxn) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	return t.tx.Bucket(bucket).ForEach(fn)
}

/*
Commit finalizes the transaction, making its writes visible to future
View/BeginWrite calls.
*/
func (t *WriteTxn) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return errs.New(errs.ErrCommit, errors.Wrap(err, "committing write transaction").Error())
	}
	return nil
}

/*
Rollback discards the transaction without writing anything.
*/
func (t *WriteTxn) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return wrapTxErr(err)
	}
	return nil
}

func wrapTxErr(err error) error {
	return errs.New(errs.ErrTransaction, errors.Wrap(err, "bbolt transaction").Error())
}
