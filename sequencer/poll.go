package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/storage"
	"github.com/vocdoni/davinci-tally/types"
)

// PollStatus is the public state of a poll.
type PollStatus struct {
	Poll   *storage.Poll
	Seq    uint64
	Queued int
	Active bool
}

// NewPoll creates a poll, seals its empty tally and starts serving it. The
// returned authority token is required to reveal the poll and is not stored,
// only its hash is.
func (s *Sequencer) NewPoll(ctx context.Context, question string) (*storage.Poll, types.HexBytes, error) {
	id := types.NewPollID()
	pool, err := s.cluster.Pool(id)
	if err != nil {
		return nil, nil, err
	}
	initial, err := s.engine.Initialize(ctx, pool)
	if err != nil {
		return nil, nil, err
	}
	data, err := initial.Bytes()
	if err != nil {
		return nil, nil, err
	}
	token, hash, err := newAuthorityToken()
	if err != nil {
		return nil, nil, err
	}
	p := &storage.Poll{
		ID:            id,
		Question:      question,
		CreatedAt:     time.Now(),
		Fingerprint:   s.cluster.Fingerprint(),
		AuthorityHash: hash,
	}
	if err := s.stg.CreatePoll(p, data); err != nil {
		return nil, nil, fmt.Errorf("failed to store poll: %w", err)
	}
	s.polls.Add(id, pool)
	log.Infow("new poll", "pollID", id.String())
	return p, token, nil
}

// Keys returns the public keys voters seal ballots with.
func (s *Sequencer) Keys(pollID types.PollID) (mpc.PoolKeys, error) {
	pool, err := s.pool(pollID)
	if err != nil {
		return mpc.PoolKeys{}, err
	}
	return pool.Keys(), nil
}

// PollStatus returns the metadata and progress of a poll.
func (s *Sequencer) PollStatus(pollID types.PollID) (*PollStatus, error) {
	p, err := s.stg.Poll(pollID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPollNotFound, pollID)
	}
	if err != nil {
		return nil, err
	}
	r, err := s.stg.Tally(pollID)
	if err != nil {
		return nil, err
	}
	queued, err := s.stg.QueuedBallots(pollID, 0)
	if err != nil {
		return nil, err
	}
	return &PollStatus{
		Poll:   p,
		Seq:    r.Seq,
		Queued: len(queued),
		Active: s.polls.Exists(pollID),
	}, nil
}

// Polls returns the IDs of the polls served by the sequencer.
func (s *Sequencer) Polls() []types.PollID {
	return s.polls.List()
}

// Info returns the public parameters of the cluster the sequencer runs on.
func (s *Sequencer) Info() mpc.Info {
	return s.cluster.Info()
}
