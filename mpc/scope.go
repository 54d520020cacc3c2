package mpc

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/vocdoni/davinci-tally/crypto/elgamal"
)

// tally payload layout: yes counter then no counter
const (
	counterYes = iota
	counterNo
	numCounters
)

// Scope is the protected evaluation boundary. Values unsealed inside a scope
// are only reachable through opaque handles, which stop working when the
// evaluation returns. The only plain value a scope produces is the boolean
// returned by Declassify.
type Scope struct {
	cluster *Cluster
	owner   Domain
	closed  atomic.Bool
}

// SecretBool is a boolean that only exists inside a Scope.
type SecretBool struct {
	scope *Scope
	value bool
}

// SecretTally holds the encrypted yes and no counters of a tally inside a
// Scope.
type SecretTally struct {
	scope    *Scope
	counters *elgamal.Vector
}

// Evaluate runs fn inside a protected scope owned by the Pool domain owner.
// It fails with ErrContext if owner is not a Pool domain registered in the
// cluster. ctx is only checked before entering; once started, fn runs to
// completion. Every handle created by the scope is invalidated when fn
// returns.
func (c *Cluster) Evaluate(ctx context.Context, owner Domain, fn func(*Scope) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.owns(owner) {
		return fmt.Errorf("%w: domain %s is not owned by the cluster", ErrContext, owner)
	}
	s := &Scope{cluster: c, owner: owner}
	defer s.closed.Store(true)
	return fn(s)
}

// Owner returns the Pool domain the scope evaluates under.
func (s *Scope) Owner() Domain {
	return s.owner
}

// check fails if the scope is closed or the handle belongs to another scope.
func (s *Scope) check(handleScope *Scope) error {
	if s.closed.Load() || handleScope == nil || handleScope.closed.Load() {
		return ErrScopeClosed
	}
	if handleScope != s {
		return fmt.Errorf("%w: handle from another scope", ErrContext)
	}
	return nil
}

// ZeroTally returns a fresh encryption of {yes: 0, no: 0}.
func (s *Scope) ZeroTally() (*SecretTally, error) {
	if err := s.check(s); err != nil {
		return nil, err
	}
	zeros := []*big.Int{big.NewInt(0), big.NewInt(0)}
	v, err := elgamal.NewVector(s.cluster.curve, numCounters).Encrypt(zeros, s.cluster.publicKey)
	if err != nil {
		return nil, err
	}
	return &SecretTally{scope: s, counters: v}, nil
}

// OpenTally decodes a Pool envelope of the scope's owner.
func (s *Scope) OpenTally(env *Envelope) (*SecretTally, error) {
	if err := s.check(s); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("%w: nil tally", ErrMalformedCiphertext)
	}
	if !env.Domain.IsPool() || env.Domain != s.owner {
		return nil, fmt.Errorf("%w: tally domain %s, scope owner %s", ErrDomainMismatch, env.Domain, s.owner)
	}
	v := elgamal.NewVector(s.cluster.curve, numCounters)
	if err := v.Deserialize(env.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return &SecretTally{scope: s, counters: v}, nil
}

// OpenBallot unseals a Shared envelope compatible with the scope's owner.
func (s *Scope) OpenBallot(env *Envelope) (*SecretBool, error) {
	if err := s.check(s); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("%w: nil ballot", ErrMalformedCiphertext)
	}
	if !env.Domain.IsShared() || !env.Domain.Compatible(s.owner) {
		return nil, fmt.Errorf("%w: ballot domain %s, scope owner %s", ErrDomainMismatch, env.Domain, s.owner)
	}
	if err := env.Domain.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	box, err := s.cluster.exchange.OpenFrom(env.Domain.Voter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	plaintext, err := box.Open(env.Payload, env.Domain.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	if len(plaintext) != 1 || (plaintext[0] != choiceNo && plaintext[0] != choiceYes) {
		return nil, fmt.Errorf("%w: unexpected ballot plaintext", ErrMalformedCiphertext)
	}
	return &SecretBool{scope: s, value: plaintext[0] == choiceYes}, nil
}

// Add increments the yes counter if b is true and the no counter otherwise.
// Both counters receive a fresh encryption (of one and of zero), so the
// result does not tell which one moved.
func (t *SecretTally) Add(b *SecretBool) error {
	if b == nil {
		return fmt.Errorf("%w: nil ballot handle", ErrContext)
	}
	if err := t.scope.check(b.scope); err != nil {
		return err
	}
	inc := []*big.Int{big.NewInt(0), big.NewInt(0)}
	if b.value {
		inc[counterYes].SetUint64(1)
	} else {
		inc[counterNo].SetUint64(1)
	}
	delta, err := elgamal.NewVector(t.scope.cluster.curve, numCounters).Encrypt(inc, t.scope.cluster.publicKey)
	if err != nil {
		return err
	}
	sum, err := elgamal.NewVector(t.scope.cluster.curve, numCounters).Add(t.counters, delta)
	if err != nil {
		return err
	}
	t.counters = sum
	return nil
}

// SealTally returns the envelope of t under the scope's owner domain.
func (s *Scope) SealTally(t *SecretTally) (*Envelope, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tally handle", ErrContext)
	}
	if err := s.check(t.scope); err != nil {
		return nil, err
	}
	return &Envelope{Domain: s.owner, Payload: t.counters.Serialize()}, nil
}

// Majority computes yes > no. Only the offset difference yes - no + W is
// ever decrypted, and its value stays inside the scope.
func (s *Scope) Majority(t *SecretTally) (*SecretBool, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tally handle", ErrContext)
	}
	if err := s.check(t.scope); err != nil {
		return nil, err
	}
	window := new(big.Int).SetUint64(s.cluster.conf.RevealWindow)
	diff := elgamal.NewCiphertext(s.cluster.curve).Sub(t.counters.Ciphertexts[counterYes], t.counters.Ciphertexts[counterNo])
	diff.AddPlain(diff, window)
	x, err := s.cluster.thresholdDecrypt(diff)
	if err != nil {
		return nil, err
	}
	return &SecretBool{scope: s, value: x.Cmp(window) > 0}, nil
}

// Declassify releases the value of b outside the boundary.
func (s *Scope) Declassify(b *SecretBool) (bool, error) {
	if b == nil {
		return false, fmt.Errorf("%w: nil handle", ErrContext)
	}
	if err := s.check(b.scope); err != nil {
		return false, err
	}
	return b.value, nil
}
