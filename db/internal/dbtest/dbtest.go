// Package dbtest holds the conformance tests every db.Database backend runs.
package dbtest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/davinci-tally/db"
)

// TestWriteTx checks reads inside and outside a transaction around Commit
// and Discard.
func TestWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)

	tx := database.WriteTx()
	c.Assert(tx.Set([]byte("a"), []byte("1")), qt.IsNil)

	got, err := tx.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []byte("1"))

	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(tx.Commit(), qt.IsNil)
	tx.Discard()

	got, err = database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []byte("1"))

	tx = database.WriteTx()
	c.Assert(tx.Delete([]byte("a")), qt.IsNil)
	_, err = tx.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	tx.Discard()

	got, err = database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []byte("1"))

	c.Assert(db.Update(database, func(tx db.WriteTx) error {
		return tx.Delete([]byte("a"))
	}), qt.IsNil)
	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	errAbort := errors.New("abort")
	c.Assert(db.Update(database, func(tx db.WriteTx) error {
		if err := tx.Set([]byte("b"), []byte("2")); err != nil {
			return err
		}
		return errAbort
	}), qt.ErrorIs, errAbort)
	_, err = database.Get([]byte("b"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

// TestIterate checks prefix iteration order, early stop and that pending
// writes are visible to the transaction iterator.
func TestIterate(t *testing.T, database db.Database) {
	c := qt.New(t)

	c.Assert(db.Update(database, func(tx db.WriteTx) error {
		for i := range 10 {
			if err := tx.Set(fmt.Appendf(nil, "p/%02d", i), fmt.Appendf(nil, "v%d", i)); err != nil {
				return err
			}
		}
		return tx.Set([]byte("q/00"), []byte("other"))
	}), qt.IsNil)

	var keys []string
	c.Assert(database.Iterate([]byte("p/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.HasLen, 10)
	c.Assert(keys[0], qt.Equals, "p/00")
	c.Assert(keys[9], qt.Equals, "p/09")

	count := 0
	c.Assert(database.Iterate([]byte("p/"), func(k, v []byte) bool {
		count++
		return count < 3
	}), qt.IsNil)
	c.Assert(count, qt.Equals, 3)

	tx := database.WriteTx()
	defer tx.Discard()
	c.Assert(tx.Delete([]byte("p/00")), qt.IsNil)
	c.Assert(tx.Set([]byte("p/10"), []byte("v10")), qt.IsNil)
	keys = nil
	c.Assert(tx.Iterate([]byte("p/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.HasLen, 10)
	c.Assert(keys[0], qt.Equals, "p/01")
	c.Assert(keys[9], qt.Equals, "p/10")
}

// TestWriteTxApply checks the writes of one transaction can be merged into
// another.
func TestWriteTxApply(t *testing.T, database db.Database) {
	c := qt.New(t)

	tx1 := database.WriteTx()
	c.Assert(tx1.Set([]byte("k1"), []byte("v1")), qt.IsNil)
	tx2 := database.WriteTx()
	c.Assert(tx2.Set([]byte("k2"), []byte("v2")), qt.IsNil)

	c.Assert(tx1.Apply(tx2), qt.IsNil)
	tx2.Discard()
	c.Assert(tx1.Commit(), qt.IsNil)
	tx1.Discard()

	got, err := database.Get([]byte("k2"))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []byte("v2"))
}

// TestWriteTxApplyPrefixed checks applying a prefixed transaction into an
// unprefixed one keeps the prefix.
func TestWriteTxApplyPrefixed(t *testing.T, database, prefixed db.Database) {
	c := qt.New(t)

	tx := database.WriteTx()
	ptx := prefixed.WriteTx()
	c.Assert(ptx.Set([]byte("key"), []byte("value")), qt.IsNil)
	c.Assert(tx.Apply(ptx), qt.IsNil)
	ptx.Discard()
	c.Assert(tx.Commit(), qt.IsNil)
	tx.Discard()

	got, err := prefixed.Get([]byte("key"))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []byte("value"))
	_, err = database.Get([]byte("key"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

// TestConcurrentWriteTx checks that, among transactions incrementing the
// same counter concurrently, those that commit never lose an update. Only
// backends reporting db.ErrConflict can pass it.
func TestConcurrentWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)
	key := []byte("counter")
	c.Assert(db.Update(database, func(tx db.WriteTx) error {
		return tx.Set(key, []byte{0})
	}), qt.IsNil)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Update(database, func(tx db.WriteTx) error {
				v, err := tx.Get(key)
				if err != nil {
					return err
				}
				return tx.Set(key, []byte{v[0] + 1})
			})
			if errors.Is(err, db.ErrConflict) {
				return
			}
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			committed++
			mu.Unlock()
		}()
	}
	wg.Wait()

	got, err := database.Get(key)
	c.Assert(err, qt.IsNil)
	c.Assert(int(got[0]), qt.Equals, committed)
	c.Assert(committed > 0, qt.IsTrue)
}
