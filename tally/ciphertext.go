package tally

import (
	"fmt"

	"github.com/vocdoni/davinci-tally/mpc"
)

// Pool tags ciphertexts sealed under a Pool domain.
type Pool struct{}

// Shared tags ciphertexts sealed under a Shared domain.
type Shared struct{}

func (Pool) kind() mpc.DomainKind   { return mpc.DomainPool }
func (Shared) kind() mpc.DomainKind { return mpc.DomainShared }

// DomainTag is the set of domain tags a Ciphertext can carry.
type DomainTag interface {
	Pool | Shared
	kind() mpc.DomainKind
}

// TallyState is the logical content of a tally.
type TallyState struct {
	Yes uint64
	No  uint64
}

// Ballot is the logical content of a ballot.
type Ballot struct {
	Choice bool
}

// Ciphertext is an immutable sealed value of logical type T under a domain
// of kind D. There is no accessor for T. Ciphertexts of different T or D are
// distinct types and cannot be converted into each other.
type Ciphertext[T any, D DomainTag] struct {
	_   [0]T
	_   [0]D
	env *mpc.Envelope
}

// Tally is a sealed TallyState owned by a Pool domain.
type Tally = Ciphertext[TallyState, Pool]

// SealedBallot is a sealed Ballot under a Shared domain.
type SealedBallot = Ciphertext[Ballot, Shared]

func fromEnvelope[T any, D DomainTag](env *mpc.Envelope) (Ciphertext[T, D], error) {
	var tag D
	if env == nil {
		return Ciphertext[T, D]{}, fmt.Errorf("%w: nil envelope", ErrMalformedCiphertext)
	}
	if env.Domain.Kind != tag.kind() {
		return Ciphertext[T, D]{}, fmt.Errorf("%w: expected %s domain, got %s", ErrDomainMismatch, tag.kind(), env.Domain.Kind)
	}
	if err := env.Domain.Validate(); err != nil {
		return Ciphertext[T, D]{}, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return Ciphertext[T, D]{env: env.Clone()}, nil
}

func fromBytes[T any, D DomainTag](data []byte) (Ciphertext[T, D], error) {
	env, err := mpc.UnmarshalEnvelope(data)
	if err != nil {
		return Ciphertext[T, D]{}, err
	}
	return fromEnvelope[T, D](env)
}

// TallyFromEnvelope wraps env as a Tally. It fails with ErrDomainMismatch
// if env is not sealed under a Pool domain.
func TallyFromEnvelope(env *mpc.Envelope) (Tally, error) {
	return fromEnvelope[TallyState, Pool](env)
}

// TallyFromBytes decodes an encoded envelope as a Tally.
func TallyFromBytes(data []byte) (Tally, error) {
	return fromBytes[TallyState, Pool](data)
}

// BallotFromEnvelope wraps env as a SealedBallot. It fails with
// ErrDomainMismatch if env is not sealed under a Shared domain.
func BallotFromEnvelope(env *mpc.Envelope) (SealedBallot, error) {
	return fromEnvelope[Ballot, Shared](env)
}

// BallotFromBytes decodes an encoded envelope as a SealedBallot.
func BallotFromBytes(data []byte) (SealedBallot, error) {
	return fromBytes[Ballot, Shared](data)
}

// SealBallot seals b for the poll of keys. This is the voter side
// counterpart of ApplyVote.
func SealBallot(keys mpc.PoolKeys, b Ballot) (SealedBallot, error) {
	env, err := mpc.SealBallot(keys, b.Choice)
	if err != nil {
		return SealedBallot{}, err
	}
	return BallotFromEnvelope(env)
}

// IsZero reports whether c is the zero value, which holds no ciphertext.
func (c Ciphertext[T, D]) IsZero() bool {
	return c.env == nil
}

// Domain returns the domain c was sealed under.
func (c Ciphertext[T, D]) Domain() mpc.Domain {
	if c.env == nil {
		return mpc.Domain{}
	}
	return c.env.Domain
}

// Envelope returns a copy of the underlying envelope.
func (c Ciphertext[T, D]) Envelope() *mpc.Envelope {
	if c.env == nil {
		return nil
	}
	return c.env.Clone()
}

// Bytes returns the encoded envelope.
func (c Ciphertext[T, D]) Bytes() ([]byte, error) {
	if c.env == nil {
		return nil, fmt.Errorf("%w: empty ciphertext", ErrMalformedCiphertext)
	}
	return c.env.Marshal()
}

// Equal reports whether both ciphertexts are byte for byte identical.
func (c Ciphertext[T, D]) Equal(other Ciphertext[T, D]) bool {
	if c.env == nil || other.env == nil {
		return c.env == other.env
	}
	return c.env.Equal(other.env)
}
