package storage

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/db/prefixeddb"
	"github.com/vocdoni/davinci-tally/types"
)

// PushBallot adds a ballot to the queue of its poll. It fails with
// ErrBallotConsumed if the ballot was already applied and with
// ErrBallotQueued if it is already waiting.
func (s *Storage) PushBallot(b *QueuedBallot) error {
	if b == nil || len(b.BallotID) == 0 {
		return fmt.Errorf("invalid ballot")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if err := s.getArtifact(pollPrefix, b.PollID.Bytes(), &Poll{}); err != nil {
		return fmt.Errorf("poll %s: %w", b.PollID, err)
	}
	key := ballotKey(b.PollID, b.BallotID)
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if ok, err := exists(prefixeddb.NewPrefixedWriteTx(wTx, consumedPrefix), key); err != nil {
		return err
	} else if ok {
		return ErrBallotConsumed
	}
	queue := prefixeddb.NewPrefixedWriteTx(wTx, queuePrefix)
	if ok, err := exists(queue, key); err != nil {
		return err
	} else if ok {
		return ErrBallotQueued
	}
	data, err := EncodeArtifact(b)
	if err != nil {
		return fmt.Errorf("encode ballot: %w", err)
	}
	if err := queue.Set(key, data); err != nil {
		return err
	}
	return wTx.Commit()
}

// QueuedBallots returns up to limit queued ballots of a poll, oldest first.
// A limit of zero returns every queued ballot.
func (s *Storage) QueuedBallots(pollID types.PollID, limit int) ([]*QueuedBallot, error) {
	var (
		ballots []*QueuedBallot
		decErr  error
	)
	if err := prefixeddb.NewPrefixedDatabase(s.db, queuePrefix).Iterate(pollID.Bytes(), func(_, v []byte) bool {
		b := &QueuedBallot{}
		if decErr = DecodeArtifact(v, b); decErr != nil {
			return false
		}
		ballots = append(ballots, b)
		return true
	}); err != nil {
		return nil, err
	}
	if decErr != nil {
		return nil, fmt.Errorf("could not decode queued ballot: %w", decErr)
	}
	slices.SortStableFunc(ballots, func(a, b *QueuedBallot) int {
		return a.ReceivedAt.Compare(b.ReceivedAt)
	})
	if limit > 0 && len(ballots) > limit {
		ballots = ballots[:limit]
	}
	return ballots, nil
}

// CountQueuedBallots returns the number of ballots waiting in every poll.
func (s *Storage) CountQueuedBallots() (map[types.PollID]int, error) {
	counts := make(map[types.PollID]int)
	if err := prefixeddb.NewPrefixedDatabase(s.db, queuePrefix).Iterate(nil, func(k, _ []byte) bool {
		if id, err := types.PollIDFromBytes(k[:types.PollIDLen]); err == nil {
			counts[id]++
		}
		return true
	}); err != nil {
		return nil, err
	}
	return counts, nil
}

// PollsWithQueuedBallots returns the polls with at least one queued ballot,
// sorted by poll ID.
func (s *Storage) PollsWithQueuedBallots() ([]types.PollID, error) {
	counts, err := s.CountQueuedBallots()
	if err != nil {
		return nil, err
	}
	ids := make([]types.PollID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b types.PollID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids, nil
}

// RemoveQueuedBallot drops a ballot from the queue without applying it.
func (s *Storage) RemoveQueuedBallot(pollID types.PollID, ballotID []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return db.Update(s.db, func(tx db.WriteTx) error {
		return prefixeddb.NewPrefixedWriteTx(tx, queuePrefix).Delete(ballotKey(pollID, ballotID))
	})
}

// IsBallotConsumed reports whether the ballot was already applied to its
// poll.
func (s *Storage) IsBallotConsumed(pollID types.PollID, ballotID []byte) (bool, error) {
	return exists(prefixeddb.NewPrefixedDatabase(s.db, consumedPrefix), ballotKey(pollID, ballotID))
}

// IsBallotQueued reports whether the ballot is waiting in the queue.
func (s *Storage) IsBallotQueued(pollID types.PollID, ballotID []byte) (bool, error) {
	return exists(prefixeddb.NewPrefixedDatabase(s.db, queuePrefix), ballotKey(pollID, ballotID))
}
