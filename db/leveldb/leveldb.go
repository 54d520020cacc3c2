// Package leveldb implements db.Database on top of syndtr/goleveldb.
package leveldb

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/db/internal/txbuf"
)

// LevelDB wraps a goleveldb database.
type LevelDB struct {
	db *leveldb.DB
}

var _ db.Database = (*LevelDB)(nil)

// New opens or creates the leveldb database at opts.Path.
func New(opts db.Options) (*LevelDB, error) {
	ldb, err := leveldb.OpenFile(opts.Path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", opts.Path, err)
	}
	return &LevelDB{db: ldb}, nil
}

func (d *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := d.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	return value, err
}

func (d *LevelDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	it := d.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		if !callback(it.Key(), it.Value()) {
			break
		}
	}
	return it.Error()
}

// WriteTx buffers writes in memory and flushes them as a single leveldb
// batch on Commit. Concurrent transactions are not detected.
func (d *LevelDB) WriteTx() db.WriteTx {
	return &WriteTx{db: d, buf: txbuf.New()}
}

func (d *LevelDB) Compact() error {
	return d.db.CompactRange(util.Range{})
}

func (d *LevelDB) Close() error {
	return d.db.Close()
}

// WriteTx is a write batch with read-your-writes semantics.
type WriteTx struct {
	db  *LevelDB
	buf *txbuf.Buffer
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	return tx.buf.Get(key, tx.db.Get)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return tx.buf.Iterate(prefix, tx.db, callback)
}

func (tx *WriteTx) Set(key, value []byte) error {
	tx.buf.Set(key, value)
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	tx.buf.Delete(key)
	return nil
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	return db.UnwrapWriteTx(other).Iterate(nil, func(k, v []byte) bool {
		tx.buf.Set(k, v)
		return true
	})
}

func (tx *WriteTx) Commit() error {
	batch := new(leveldb.Batch)
	tx.buf.Each(func(k, v []byte, deleted bool) {
		if deleted {
			batch.Delete(k)
			return
		}
		batch.Put(k, v)
	})
	if err := tx.db.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return err
	}
	tx.buf.Reset()
	return nil
}

func (tx *WriteTx) Discard() {
	tx.buf.Reset()
}
