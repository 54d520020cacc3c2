// Package tally implements the confidential yes/no tally: a running tally is
// kept encrypted under the poll's Pool domain, ballots arrive sealed under a
// per-voter Shared domain, and the only value ever declassified is whether
// yes votes outnumber no votes.
//
// The engine is stateless. Every call takes the ciphertexts it works on and
// returns new ones; persisting them and feeding ApplyVote one tally at a time
// per poll is up to the caller. Two ApplyVote calls on the same tally lose
// one of the votes.
package tally

import (
	"context"
	"fmt"

	"github.com/vocdoni/davinci-tally/mpc"
)

// Substrate is the protected evaluation capability the engine needs.
// *mpc.Cluster implements it.
type Substrate interface {
	Evaluate(ctx context.Context, owner mpc.Domain, fn func(*mpc.Scope) error) error
}

// Engine runs the tally transitions on a substrate.
type Engine struct {
	sub Substrate
}

// New returns an engine backed by sub.
func New(sub Substrate) *Engine {
	return &Engine{sub: sub}
}

// Initialize seals the empty tally {yes: 0, no: 0} under the pool's domain.
// Each call uses fresh randomness.
func (e *Engine) Initialize(ctx context.Context, pool *mpc.PoolContext) (Tally, error) {
	if !pool.Valid() {
		return Tally{}, fmt.Errorf("initialize: %w: invalid pool context", ErrContext)
	}
	var out *mpc.Envelope
	err := e.sub.Evaluate(ctx, pool.Domain(), func(s *mpc.Scope) error {
		t, err := s.ZeroTally()
		if err != nil {
			return err
		}
		out, err = s.SealTally(t)
		return err
	})
	if err != nil {
		return Tally{}, fmt.Errorf("initialize: %w", err)
	}
	return TallyFromEnvelope(out)
}

// ApplyVote returns a new tally with the ballot counted: yes is incremented
// by one if the ballot choice is true, no otherwise. The result is owned by
// the same Pool domain as the input tally.
func (e *Engine) ApplyVote(ctx context.Context, ballot SealedBallot, tally Tally) (Tally, error) {
	if tally.IsZero() {
		return Tally{}, fmt.Errorf("apply vote: %w: empty tally", ErrMalformedCiphertext)
	}
	if ballot.IsZero() {
		return Tally{}, fmt.Errorf("apply vote: %w: empty ballot", ErrMalformedCiphertext)
	}
	owner := tally.Domain()
	if !ballot.Domain().Compatible(owner) {
		return Tally{}, fmt.Errorf("apply vote: %w: ballot %s, tally %s", ErrDomainMismatch, ballot.Domain(), owner)
	}
	var out *mpc.Envelope
	err := e.sub.Evaluate(ctx, owner, func(s *mpc.Scope) error {
		choice, err := s.OpenBallot(ballot.env)
		if err != nil {
			return err
		}
		counters, err := s.OpenTally(tally.env)
		if err != nil {
			return err
		}
		if err := counters.Add(choice); err != nil {
			return err
		}
		out, err = s.SealTally(counters)
		return err
	})
	if err != nil {
		return Tally{}, fmt.Errorf("apply vote: %w", err)
	}
	return TallyFromEnvelope(out)
}

// Reveal declassifies yes > no for the tally. Ties are false. Neither
// counter nor their difference leaves the substrate.
func (e *Engine) Reveal(ctx context.Context, tally Tally) (bool, error) {
	if tally.IsZero() {
		return false, fmt.Errorf("reveal: %w: empty tally", ErrMalformedCiphertext)
	}
	var result bool
	err := e.sub.Evaluate(ctx, tally.Domain(), func(s *mpc.Scope) error {
		counters, err := s.OpenTally(tally.env)
		if err != nil {
			return err
		}
		majority, err := s.Majority(counters)
		if err != nil {
			return err
		}
		result, err = s.Declassify(majority)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("reveal: %w", err)
	}
	return result, nil
}
