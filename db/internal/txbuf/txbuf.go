// Package txbuf buffers the writes of a transaction for backends without
// native read-your-writes batches.
package txbuf

import (
	"bytes"
	"slices"

	"github.com/vocdoni/davinci-tally/db"
)

// Buffer holds pending writes. A nil value marks a deletion.
type Buffer struct {
	writes map[string]*[]byte
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{writes: make(map[string]*[]byte)}
}

// Set records a write of value at key.
func (b *Buffer) Set(key, value []byte) {
	v := bytes.Clone(value)
	b.writes[string(key)] = &v
}

// Delete records the deletion of key.
func (b *Buffer) Delete(key []byte) {
	b.writes[string(key)] = nil
}

// Get returns the pending value of key, falling back to base when the key
// was not written.
func (b *Buffer) Get(key []byte, base func([]byte) ([]byte, error)) ([]byte, error) {
	if pending, ok := b.writes[string(key)]; ok {
		if pending == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(*pending), nil
	}
	return base(key)
}

// Iterate merges the pending writes under prefix with the keys returned by
// base and calls callback in key order.
func (b *Buffer) Iterate(prefix []byte, base db.Reader, callback func(key, value []byte) bool) error {
	entries := make(map[string][]byte)
	if err := base.Iterate(prefix, func(k, v []byte) bool {
		entries[string(k)] = bytes.Clone(v)
		return true
	}); err != nil {
		return err
	}
	for k, v := range b.writes {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(entries, k)
			continue
		}
		entries[k] = *v
	}
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

// Each calls fn for every pending write. value is nil for deletions.
func (b *Buffer) Each(fn func(key []byte, value []byte, deleted bool)) {
	for k, v := range b.writes {
		if v == nil {
			fn([]byte(k), nil, true)
			continue
		}
		fn([]byte(k), *v, false)
	}
}

// Len returns the number of pending writes.
func (b *Buffer) Len() int {
	return len(b.writes)
}

// Reset drops every pending write.
func (b *Buffer) Reset() {
	clear(b.writes)
}
