package sequencer

import (
	"context"
	"fmt"

	"github.com/vocdoni/davinci-tally/tally"
	"github.com/vocdoni/davinci-tally/types"
)

// Result is the declassified outcome of a poll at a given sequence number.
type Result struct {
	PollID  types.PollID
	Seq     uint64
	YesWins bool
}

// Reveal returns whether yes votes outnumber no votes in the current tally
// of a poll. The caller must present the authority token returned when the
// poll was created, otherwise ErrUnauthorized is returned. Concurrent reveals
// of the same tally share one evaluation, which is not cancelled when the
// caller that started it goes away, and the outcome is cached until the next
// vote.
func (s *Sequencer) Reveal(ctx context.Context, pollID types.PollID, token types.HexBytes) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pool(pollID); err != nil {
		return nil, err
	}
	p, err := s.stg.Poll(pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to load poll: %w", err)
	}
	if err := authorize(p, token); err != nil {
		return nil, err
	}
	record, err := s.stg.Tally(pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tally: %w", err)
	}
	key := fmt.Sprintf("%s/%d", pollID, record.Seq)
	if yes, ok := s.revealCache.Get(key); ok {
		return &Result{PollID: pollID, Seq: record.Seq, YesWins: yes}, nil
	}
	evalCtx := context.WithoutCancel(ctx)
	v, err, _ := s.reveals.Do(key, func() (any, error) {
		current, err := tally.TallyFromBytes(record.Tally)
		if err != nil {
			return false, err
		}
		yes, err := s.engine.Reveal(evalCtx, current)
		if err != nil {
			return false, err
		}
		s.revealCache.Add(key, yes)
		return yes, nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{PollID: pollID, Seq: record.Seq, YesWins: v.(bool)}, nil
}
