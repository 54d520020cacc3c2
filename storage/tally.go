package storage

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/db/prefixeddb"
	"github.com/vocdoni/davinci-tally/types"
)

func ballotKey(pollID types.PollID, ballotID []byte) []byte {
	return slices.Concat(pollID.Bytes(), ballotID)
}

// Tally returns the current tally of a poll or ErrNotFound.
func (s *Storage) Tally(pollID types.PollID) (*TallyRecord, error) {
	key := cacheKey(tallyPrefix, pollID.Bytes())
	if cached, ok := s.cache.Get(key); ok {
		if r, ok := cached.(*TallyRecord); ok {
			return cloneTally(r), nil
		}
	}
	r := &TallyRecord{}
	if err := s.getArtifact(tallyPrefix, pollID.Bytes(), r); err != nil {
		return nil, err
	}
	s.cache.Add(key, cloneTally(r))
	return r, nil
}

func cloneTally(r *TallyRecord) *TallyRecord {
	cp := *r
	cp.Tally = slices.Clone(r.Tally)
	return &cp
}

// CommitVote atomically replaces the tally of a poll with next, computed by
// applying ballotID to the tally at sequence seq. It fails with
// ErrStaleTally if the stored tally is no longer at seq, and with
// ErrBallotConsumed if the ballot was already applied. On success the tally
// is stored at seq+1, the ballot is marked as consumed and removed from the
// queue.
func (s *Storage) CommitVote(pollID types.PollID, ballotID []byte, seq uint64, next types.HexBytes) error {
	if len(ballotID) == 0 {
		return fmt.Errorf("empty ballot ID")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	tallies := prefixeddb.NewPrefixedWriteTx(wTx, tallyPrefix)
	consumed := prefixeddb.NewPrefixedWriteTx(wTx, consumedPrefix)
	queue := prefixeddb.NewPrefixedWriteTx(wTx, queuePrefix)

	data, err := tallies.Get(pollID.Bytes())
	if errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("tally of poll %s: %w", pollID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	current := &TallyRecord{}
	if err := DecodeArtifact(data, current); err != nil {
		return fmt.Errorf("could not decode tally: %w", err)
	}
	if current.Seq != seq {
		return fmt.Errorf("poll %s at sequence %d, vote computed from %d: %w", pollID, current.Seq, seq, ErrStaleTally)
	}
	key := ballotKey(pollID, ballotID)
	if ok, err := exists(consumed, key); err != nil {
		return err
	} else if ok {
		return ErrBallotConsumed
	}

	updated := &TallyRecord{PollID: pollID, Seq: seq + 1, Tally: next}
	if data, err = EncodeArtifact(updated); err != nil {
		return err
	}
	if err := tallies.Set(pollID.Bytes(), data); err != nil {
		return err
	}
	if data, err = EncodeArtifact(updated.Seq); err != nil {
		return err
	}
	if err := consumed.Set(key, data); err != nil {
		return err
	}
	if err := queue.Delete(key); err != nil {
		return err
	}
	if err := wTx.Commit(); err != nil {
		return err
	}
	s.cache.Add(cacheKey(tallyPrefix, pollID.Bytes()), cloneTally(updated))
	return nil
}
