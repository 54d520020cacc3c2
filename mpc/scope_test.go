package mpc

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/davinci-tally/crypto/sealbox"
	"github.com/vocdoni/davinci-tally/types"
)

func TestEvaluateContext(t *testing.T) {
	c := qt.New(t)
	cluster := newTestCluster(c)
	pool := newTestPool(c, cluster)
	noop := func(*Scope) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Assert(cluster.Evaluate(ctx, pool.Domain(), noop), qt.ErrorIs, context.Canceled)

	// unregistered poll
	unregistered := pool.Domain()
	unregistered.PollID = types.NewPollID()
	c.Assert(cluster.Evaluate(context.Background(), unregistered, noop), qt.ErrorIs, ErrContext)

	// shared domains cannot own a scope
	ballot, err := SealBallot(pool.Keys(), true)
	c.Assert(err, qt.IsNil)
	c.Assert(cluster.Evaluate(context.Background(), ballot.Domain, noop), qt.ErrorIs, ErrContext)

	// another cluster's pool
	other := newTestCluster(c)
	otherPool := newTestPool(c, other)
	c.Assert(cluster.Evaluate(context.Background(), otherPool.Domain(), noop), qt.ErrorIs, ErrContext)

	// errors from fn are returned untouched
	boom := errors.New("boom")
	c.Assert(cluster.Evaluate(context.Background(), pool.Domain(), func(*Scope) error { return boom }), qt.Equals, boom)
}

func TestScopeHandlesDoNotEscape(t *testing.T) {
	c := qt.New(t)
	cluster := newTestCluster(c)
	pool := newTestPool(c, cluster)
	ballot, err := SealBallot(pool.Keys(), true)
	c.Assert(err, qt.IsNil)

	var leakedScope *Scope
	var leakedTally *SecretTally
	var leakedBool *SecretBool
	err = cluster.Evaluate(context.Background(), pool.Domain(), func(s *Scope) error {
		c.Assert(s.Owner(), qt.Equals, pool.Domain())
		leakedScope = s
		if leakedTally, err = s.ZeroTally(); err != nil {
			return err
		}
		leakedBool, err = s.OpenBallot(ballot)
		return err
	})
	c.Assert(err, qt.IsNil)

	_, err = leakedScope.Declassify(leakedBool)
	c.Assert(err, qt.ErrorIs, ErrScopeClosed)
	c.Assert(leakedTally.Add(leakedBool), qt.ErrorIs, ErrScopeClosed)
	_, err = leakedScope.SealTally(leakedTally)
	c.Assert(err, qt.ErrorIs, ErrScopeClosed)
	_, err = leakedScope.ZeroTally()
	c.Assert(err, qt.ErrorIs, ErrScopeClosed)

	// handles from a closed scope are rejected by a new one too
	err = cluster.Evaluate(context.Background(), pool.Domain(), func(s *Scope) error {
		_, err := s.Declassify(leakedBool)
		return err
	})
	c.Assert(err, qt.ErrorIs, ErrScopeClosed)

	// handles of a sibling scope that is still open are rejected
	err = cluster.Evaluate(context.Background(), pool.Domain(), func(outer *Scope) error {
		b, err := outer.OpenBallot(ballot)
		if err != nil {
			return err
		}
		return cluster.Evaluate(context.Background(), pool.Domain(), func(inner *Scope) error {
			_, err := inner.Declassify(b)
			return err
		})
	})
	c.Assert(err, qt.ErrorIs, ErrContext)
}

func TestOpenBallotRejects(t *testing.T) {
	c := qt.New(t)
	cluster := newTestCluster(c)
	pool := newTestPool(c, cluster)
	otherPool := newTestPool(c, cluster)

	open := func(env *Envelope) error {
		return cluster.Evaluate(context.Background(), pool.Domain(), func(s *Scope) error {
			_, err := s.OpenBallot(env)
			return err
		})
	}

	ballot, err := SealBallot(pool.Keys(), true)
	c.Assert(err, qt.IsNil)
	c.Assert(open(ballot), qt.IsNil)

	// ballot of another poll
	foreign, err := SealBallot(otherPool.Keys(), true)
	c.Assert(err, qt.IsNil)
	c.Assert(open(foreign), qt.ErrorIs, ErrDomainMismatch)

	// a tally is not a ballot
	c.Assert(open(sealZero(c, cluster, pool)), qt.ErrorIs, ErrDomainMismatch)

	// relabelled to this poll: the additional data no longer matches
	relabelled := foreign.Clone()
	relabelled.Domain.PollID = pool.Domain().PollID
	c.Assert(open(relabelled), qt.ErrorIs, ErrMalformedCiphertext)

	// swapped voter key
	swapped := ballot.Clone()
	swapped.Domain.Voter[0] ^= 1
	c.Assert(open(swapped), qt.ErrorIs, ErrMalformedCiphertext)

	// flipped payload bit
	flipped := ballot.Clone()
	flipped.Payload[len(flipped.Payload)-1] ^= 1
	c.Assert(open(flipped), qt.ErrorIs, ErrMalformedCiphertext)

	// authentic but not a yes/no choice
	voter, err := sealbox.GenerateKey()
	c.Assert(err, qt.IsNil)
	box, err := voter.SealTo(cluster.exchange.Public())
	c.Assert(err, qt.IsNil)
	domain := Domain{Kind: DomainShared, PollID: pool.Domain().PollID, Pool: cluster.Fingerprint(), Voter: voter.Public()}
	payload, err := box.Seal([]byte{2}, domain.Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(open(&Envelope{Domain: domain, Payload: payload}), qt.ErrorIs, ErrMalformedCiphertext)

	c.Assert(open(nil), qt.ErrorIs, ErrMalformedCiphertext)
}

func TestOpenTallyRejects(t *testing.T) {
	c := qt.New(t)
	cluster := newTestCluster(c)
	pool := newTestPool(c, cluster)
	otherPool := newTestPool(c, cluster)

	open := func(env *Envelope) error {
		return cluster.Evaluate(context.Background(), pool.Domain(), func(s *Scope) error {
			_, err := s.OpenTally(env)
			return err
		})
	}

	tally := sealZero(c, cluster, pool)
	c.Assert(open(tally), qt.IsNil)
	c.Assert(tally.Payload, qt.HasLen, 128)

	c.Assert(open(sealZero(c, cluster, otherPool)), qt.ErrorIs, ErrDomainMismatch)

	short := tally.Clone()
	short.Payload = short.Payload[:100]
	c.Assert(open(short), qt.ErrorIs, ErrMalformedCiphertext)

	garbage := tally.Clone()
	for i := range garbage.Payload {
		garbage.Payload[i] = 0xff
	}
	c.Assert(open(garbage), qt.ErrorIs, ErrMalformedCiphertext)
}

func TestMajority(t *testing.T) {
	c := qt.New(t)
	cluster := newTestCluster(c)
	pool := newTestPool(c, cluster)

	seal := func(choice bool) *Envelope {
		b, err := SealBallot(pool.Keys(), choice)
		c.Assert(err, qt.IsNil)
		return b
	}

	tally := sealZero(c, cluster, pool)
	yes, err := majority(cluster, tally)
	c.Assert(err, qt.IsNil)
	c.Assert(yes, qt.IsFalse)

	tally = vote(c, cluster, tally, seal(true), seal(false))
	yes, err = majority(cluster, tally)
	c.Assert(err, qt.IsNil)
	c.Assert(yes, qt.IsFalse)

	tally = vote(c, cluster, tally, seal(true))
	yes, err = majority(cluster, tally)
	c.Assert(err, qt.IsNil)
	c.Assert(yes, qt.IsTrue)

	// W+1 more no votes push the difference out of the window
	var noes []*Envelope
	for range testWindow + 2 {
		noes = append(noes, seal(false))
	}
	tally = vote(c, cluster, tally, noes...)
	_, err = majority(cluster, tally)
	c.Assert(err, qt.ErrorIs, ErrRevealWindow)
}
