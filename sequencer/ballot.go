package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/storage"
	"github.com/vocdoni/davinci-tally/tally"
	"github.com/vocdoni/davinci-tally/types"
)

// BallotID returns the identifier of a sealed ballot: the Keccak-256 hash of
// its canonical encoding.
func BallotID(b tally.SealedBallot) (types.HexBytes, error) {
	data, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(data), nil
}

// decodeBallot decodes an encoded ballot and checks it was sealed for
// pollID under the cluster keys.
func (s *Sequencer) decodeBallot(pollID types.PollID, data []byte) (tally.SealedBallot, types.HexBytes, error) {
	pool, err := s.pool(pollID)
	if err != nil {
		return tally.SealedBallot{}, nil, err
	}
	ballot, err := tally.BallotFromBytes(data)
	if err != nil {
		return tally.SealedBallot{}, nil, err
	}
	if !ballot.Domain().Compatible(pool.Domain()) {
		return tally.SealedBallot{}, nil, fmt.Errorf("%w: ballot sealed for %s", tally.ErrDomainMismatch, ballot.Domain())
	}
	id, err := BallotID(ballot)
	if err != nil {
		return tally.SealedBallot{}, nil, err
	}
	return ballot, id, nil
}

// SubmitBallot validates an encoded ballot and queues it for its poll. It
// returns the ballot ID.
func (s *Sequencer) SubmitBallot(pollID types.PollID, data []byte) (types.HexBytes, error) {
	ballot, id, err := s.decodeBallot(pollID, data)
	if err != nil {
		return nil, err
	}
	canonical, err := ballot.Bytes()
	if err != nil {
		return nil, err
	}
	if err := s.stg.PushBallot(&storage.QueuedBallot{
		PollID:     pollID,
		BallotID:   id,
		Ballot:     canonical,
		ReceivedAt: time.Now(),
	}); err != nil {
		return nil, err
	}
	log.Debugw("ballot queued", "pollID", pollID.String(), "ballotID", id.String())
	return id, nil
}

// ApplyBallot applies an encoded ballot to its poll synchronously and
// returns the sequence number of the resulting tally.
func (s *Sequencer) ApplyBallot(ctx context.Context, pollID types.PollID, data []byte) (uint64, error) {
	ballot, id, err := s.decodeBallot(pollID, data)
	if err != nil {
		return 0, err
	}
	return s.applyBallot(ctx, pollID, id, ballot)
}

// applyBallot runs ApplyVote on the current tally of the poll and commits
// the result, holding the poll's writer lock for the whole read-modify-write.
func (s *Sequencer) applyBallot(ctx context.Context, pollID types.PollID, id types.HexBytes, ballot tally.SealedBallot) (uint64, error) {
	unlock, ok := s.polls.Lock(pollID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPollNotFound, pollID)
	}
	defer unlock()

	if consumed, err := s.stg.IsBallotConsumed(pollID, id); err != nil {
		return 0, err
	} else if consumed {
		return 0, storage.ErrBallotConsumed
	}
	record, err := s.stg.Tally(pollID)
	if err != nil {
		return 0, fmt.Errorf("failed to load tally: %w", err)
	}
	current, err := tally.TallyFromBytes(record.Tally)
	if err != nil {
		return 0, fmt.Errorf("stored tally: %w", err)
	}
	next, err := s.engine.ApplyVote(ctx, ballot, current)
	if err != nil {
		return 0, err
	}
	data, err := next.Bytes()
	if err != nil {
		return 0, err
	}
	if err := s.stg.CommitVote(pollID, id, record.Seq, data); err != nil {
		return 0, err
	}
	s.polls.TouchVote(pollID)
	return record.Seq + 1, nil
}

// isCoreError reports whether err is a validation failure of the ballot
// itself, which fails identically on every retry.
func isCoreError(err error) bool {
	return errors.Is(err, tally.ErrMalformedCiphertext) ||
		errors.Is(err, tally.ErrDomainMismatch) ||
		errors.Is(err, tally.ErrContext)
}

// BallotStatus is the processing state of a submitted ballot.
type BallotStatus string

const (
	BallotStatusUnknown BallotStatus = "unknown"
	BallotStatusQueued  BallotStatus = "queued"
	BallotStatusApplied BallotStatus = "applied"
)

// BallotStatus returns whether a ballot is waiting in the queue of a poll or
// was already applied to its tally.
func (s *Sequencer) BallotStatus(pollID types.PollID, ballotID types.HexBytes) (BallotStatus, error) {
	if _, err := s.stg.Poll(pollID); errors.Is(err, storage.ErrNotFound) {
		return BallotStatusUnknown, fmt.Errorf("%w: %s", ErrPollNotFound, pollID)
	} else if err != nil {
		return BallotStatusUnknown, err
	}
	if applied, err := s.stg.IsBallotConsumed(pollID, ballotID); err != nil {
		return BallotStatusUnknown, err
	} else if applied {
		return BallotStatusApplied, nil
	}
	if queued, err := s.stg.IsBallotQueued(pollID, ballotID); err != nil {
		return BallotStatusUnknown, err
	} else if queued {
		return BallotStatusQueued, nil
	}
	return BallotStatusUnknown, nil
}
