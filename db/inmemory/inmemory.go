// Package inmemory implements an ephemeral db.Database with optimistic
// transactions.
package inmemory

import (
	"bytes"
	"errors"
	"slices"
	"sync"

	"github.com/vocdoni/davinci-tally/db"
)

var errTxClosed = errors.New("inmemory: transaction already committed or discarded")

type entry struct {
	value   []byte
	version uint64
	deleted bool
}

// InMemoryDB keeps every key in a map. Each write bumps a global version so
// that transactions can detect keys changed after they read them.
type InMemoryDB struct {
	mu          sync.RWMutex
	data        map[string]entry
	nextVersion uint64
}

var _ db.Database = (*InMemoryDB)(nil)

// New returns a new in-memory database. Options are ignored.
func New(_ db.Options) (*InMemoryDB, error) {
	return &InMemoryDB{data: make(map[string]entry)}, nil
}

func (d *InMemoryDB) Close() error   { return nil }
func (d *InMemoryDB) Compact() error { return nil }

func (d *InMemoryDB) WriteTx() db.WriteTx {
	d.mu.RLock()
	baseVer := d.nextVersion
	d.mu.RUnlock()
	return &WriteTx{
		db:      d,
		writes:  make(map[string]*[]byte),
		reads:   make(map[string]uint64),
		baseVer: baseVer,
	}
}

func (d *InMemoryDB) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ent, ok := d.data[string(key)]
	if !ok || ent.deleted {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(ent.value), nil
}

func (d *InMemoryDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	entries, _ := d.snapshot(prefix)
	return iterateEntries(entries, callback)
}

// snapshot copies the live entries under prefix along with their versions.
func (d *InMemoryDB) snapshot(prefix []byte) (map[string][]byte, map[string]uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entries := make(map[string][]byte)
	versions := make(map[string]uint64)
	for k, ent := range d.data {
		if ent.deleted || !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		entries[k] = bytes.Clone(ent.value)
		versions[k] = ent.version
	}
	return entries, versions
}

func (d *InMemoryDB) version(key string) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data[key].version
}

// applyWrite must be called with mu held.
func (d *InMemoryDB) applyWrite(key string, value *[]byte) {
	d.nextVersion++
	ent := entry{version: d.nextVersion, deleted: value == nil}
	if value != nil {
		ent.value = bytes.Clone(*value)
	}
	d.data[key] = ent
}

// WriteTx buffers writes and records the version of every key it reads or
// writes. Commit fails with db.ErrConflict if any of those keys changed.
type WriteTx struct {
	db      *InMemoryDB
	writes  map[string]*[]byte
	reads   map[string]uint64
	baseVer uint64
	closed  bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) recordRead(key string, version uint64) {
	if _, ok := tx.reads[key]; !ok {
		tx.reads[key] = version
	}
}

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	k := string(key)
	if pending, ok := tx.writes[k]; ok {
		if pending == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(*pending), nil
	}
	tx.db.mu.RLock()
	ent, ok := tx.db.data[k]
	tx.db.mu.RUnlock()
	tx.recordRead(k, ent.version)
	if !ok || ent.deleted {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(ent.value), nil
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(k, v []byte) bool) error {
	entries, versions := tx.db.snapshot(prefix)
	for k, v := range tx.writes {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(entries, k)
			continue
		}
		entries[k] = bytes.Clone(*v)
	}
	for k, ver := range versions {
		tx.recordRead(k, ver)
	}
	return iterateEntries(entries, callback)
}

func (tx *WriteTx) Set(key, value []byte) error {
	if tx.closed {
		return errTxClosed
	}
	k := string(key)
	tx.recordRead(k, tx.db.version(k))
	v := bytes.Clone(value)
	tx.writes[k] = &v
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	if tx.closed {
		return errTxClosed
	}
	k := string(key)
	tx.recordRead(k, tx.db.version(k))
	tx.writes[k] = nil
	return nil
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	var err error
	if iterErr := db.UnwrapWriteTx(other).Iterate(nil, func(k, v []byte) bool {
		err = tx.Set(k, v)
		return err == nil
	}); iterErr != nil {
		return iterErr
	}
	return err
}

func (tx *WriteTx) Commit() error {
	if tx.closed {
		return errTxClosed
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	for k, readVer := range tx.reads {
		if current := tx.db.data[k].version; readVer > tx.baseVer || current != readVer {
			return db.ErrConflict
		}
	}
	for k, v := range tx.writes {
		tx.db.applyWrite(k, v)
	}
	tx.closed = true
	return nil
}

func (tx *WriteTx) Discard() {
	tx.writes = map[string]*[]byte{}
	tx.reads = map[string]uint64{}
	tx.closed = true
}

func iterateEntries(entries map[string][]byte, callback func(key, value []byte) bool) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !callback([]byte(k), entries[k]) {
			break
		}
	}
	return nil
}
