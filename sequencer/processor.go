package sequencer

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/storage"
	"github.com/vocdoni/davinci-tally/tally"
	"github.com/vocdoni/davinci-tally/types"
)

func (s *Sequencer) ballotProcessor(period time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			log.Infow("ballot processor stopped")
			return
		case <-ticker.C:
			if err := s.processQueuedBallots(s.ctx); err != nil && s.ctx.Err() == nil {
				log.Warnw("failed to process queued ballots", "error", err)
			}
		}
	}
}

// processQueuedBallots applies the queued ballots of every served poll.
// Polls run in parallel, the ballots of a poll one after the other.
func (s *Sequencer) processQueuedBallots(ctx context.Context) error {
	ids, err := s.stg.PollsWithQueuedBallots()
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, id := range ids {
		if !s.polls.Exists(id) {
			continue
		}
		g.Go(func() error {
			return s.processPoll(gctx, id)
		})
	}
	return g.Wait()
}

// processPoll applies up to BallotsPerTick queued ballots of a poll. Ballots
// that can never be applied are dropped from the queue; storage conflicts
// leave the remaining ballots for the next tick.
func (s *Sequencer) processPoll(ctx context.Context, pollID types.PollID) error {
	queued, err := s.stg.QueuedBallots(pollID, BallotsPerTick)
	if err != nil {
		return err
	}
	applied := 0
	for _, q := range queued {
		if err := ctx.Err(); err != nil {
			return nil
		}
		ballot, err := tally.BallotFromBytes(q.Ballot)
		if err == nil {
			_, err = s.applyBallot(ctx, pollID, q.BallotID, ballot)
		}
		switch {
		case err == nil:
			applied++
		case errors.Is(err, storage.ErrBallotConsumed), isCoreError(err):
			log.Warnw("dropping queued ballot",
				"pollID", pollID.String(),
				"ballotID", q.BallotID.String(),
				"error", err)
			if err := s.stg.RemoveQueuedBallot(pollID, q.BallotID); err != nil {
				return err
			}
		case errors.Is(err, storage.ErrStaleTally), errors.Is(err, db.ErrConflict):
			log.Debugw("tally conflict, retrying on next tick", "pollID", pollID.String(), "error", err)
			return nil
		default:
			return err
		}
	}
	if applied > 0 {
		log.Infow("applied queued ballots", "pollID", pollID.String(), "count", applied)
	}
	return nil
}

// ProcessQueue applies the queued ballots of every served poll without
// waiting for the next tick.
func (s *Sequencer) ProcessQueue(ctx context.Context) error {
	return s.processQueuedBallots(ctx)
}
