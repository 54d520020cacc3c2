/*
Package storage persists the polls of the tally service and the state the
sequencer needs to serialize votes.

# Storage Organization

Every artifact is CBOR encoded and stored under a prefixed namespace:

  - p/ : pollID → Poll (question, creation time, cluster fingerprint)
  - t/ : pollID → TallyRecord (sequence number and sealed tally)
  - q/ : pollID + ballotID → QueuedBallot (ballots waiting to be applied)
  - n/ : pollID + ballotID → sequence number the ballot was applied at

A tally is only replaced through CommitVote, which compares the stored
sequence number with the one the new tally was computed from, so a tally
computed from a stale read is never stored.
*/
package storage

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/db/prefixeddb"
	"github.com/vocdoni/davinci-tally/log"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrStaleTally     = errors.New("tally was modified since it was read")
	ErrBallotConsumed = errors.New("ballot already applied")
	ErrBallotQueued   = errors.New("ballot already queued")

	// Prefixes
	pollPrefix     = []byte("p/")
	tallyPrefix    = []byte("t/")
	queuePrefix    = []byte("q/")
	consumedPrefix = []byte("n/")
)

const cacheSize = 1000

// Storage stores polls, tallies and ballots on a db.Database.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	cache      *lru.Cache[string, any]
}

// New creates a new Storage instance.
func New(database db.Database) *Storage {
	cache, err := lru.New[string, any](cacheSize)
	if err != nil {
		log.Fatalf("failed to create LRU cache: %v", err)
	}
	return &Storage{db: database, cache: cache}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close storage", "error", err)
	}
}

func cacheKey(prefix, key []byte) string {
	return string(prefix) + string(key)
}

// setArtifact encodes and stores artifact under prefix/key and refreshes the
// cache entry.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedDatabase(s.db, prefix).WriteTx()
	defer wTx.Discard()
	if err := wTx.Set(key, data); err != nil {
		return err
	}
	if err := wTx.Commit(); err != nil {
		return err
	}
	s.cache.Remove(cacheKey(prefix, key))
	return nil
}

// getArtifact decodes the artifact stored under prefix/key into out. It
// returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedDatabase(s.db, prefix).Get(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := DecodeArtifact(data, out); err != nil {
		return fmt.Errorf("could not decode artifact: %w", err)
	}
	return nil
}

// listArtifacts retrieves all the keys under prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := prefixeddb.NewPrefixedDatabase(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, append([]byte(nil), k...))
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}

// exists reports whether prefix/key is set in r.
func exists(r db.Reader, key []byte) (bool, error) {
	_, err := r.Get(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}
