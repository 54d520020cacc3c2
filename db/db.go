// Package db defines the key-value store interface shared by the storage
// backends.
package db

import (
	"errors"
)

const (
	// TypePebble is the pebble backend.
	TypePebble = "pebble"
	// TypeLevelDB is the goleveldb backend.
	TypeLevelDB = "leveldb"
	// TypeInMem is the ephemeral in-memory backend.
	TypeInMem = "inmem"
	// TypeMongo is the mongodb backend. Path is the database name.
	TypeMongo = "mongodb"
)

var (
	// ErrKeyNotFound is returned by Get when the key does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned by Commit when a key read by the transaction
	// was modified by another transaction in the meantime. Only backends
	// with optimistic transactions report it.
	ErrConflict = errors.New("transaction conflict")
)

// Options configures a backend.
type Options struct {
	Path string
}

// Reader is the read side of a Database or WriteTx.
type Reader interface {
	// Get returns a copy of the value stored at key or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback for every key starting with prefix, in
	// lexicographical order, until it returns false. The slices passed to
	// callback are only valid during the call.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// Database is a key-value store.
type Database interface {
	Reader
	// WriteTx creates a new write transaction.
	WriteTx() WriteTx
	// Compact triggers a compaction if the backend supports it.
	Compact() error
	// Close closes the database.
	Close() error
}

// WriteTx groups writes that are applied atomically on Commit. Reads see
// the pending writes of the transaction.
type WriteTx interface {
	Reader
	Set(key, value []byte) error
	Delete(key []byte) error
	// Apply copies every key of other into the transaction.
	Apply(other WriteTx) error
	Commit() error
	// Discard drops the transaction. It is safe to call after Commit.
	Discard()
}

// ViewTx runs fn with a transaction that is always discarded.
func ViewTx(d Database, fn func(Reader) error) error {
	tx := d.WriteTx()
	defer tx.Discard()
	return fn(tx)
}

// Update runs fn in a write transaction and commits it when fn returns nil.
func Update(d Database, fn func(WriteTx) error) error {
	tx := d.WriteTx()
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// UnwrapWriteTx returns the innermost transaction of a wrapped WriteTx.
func UnwrapWriteTx(tx WriteTx) WriteTx {
	for {
		u, ok := tx.(interface{ Unwrap() WriteTx })
		if !ok {
			return tx
		}
		tx = u.Unwrap()
	}
}
