package mpc

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Envelope is a domain tagged opaque payload: the wire and storage form of
// every ciphertext. For Pool domains the payload holds the ElGamal
// ciphertexts of the tally counters; for Shared domains it holds an AEAD
// sealed ballot.
type Envelope struct {
	Domain  Domain `json:"domain"`
	Payload []byte `json:"payload"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Marshal returns the deterministic CBOR encoding of the envelope.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := encMode.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// UnmarshalEnvelope decodes and validates an envelope produced by Marshal.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	e := &Envelope{}
	if err := cbor.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	if err := e.Domain.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedCiphertext)
	}
	return e, nil
}

// Clone returns a deep copy of the envelope.
func (e *Envelope) Clone() *Envelope {
	return &Envelope{Domain: e.Domain, Payload: bytes.Clone(e.Payload)}
}

// Equal reports whether both envelopes hold the same domain and payload.
func (e *Envelope) Equal(other *Envelope) bool {
	return e.Domain == other.Domain && bytes.Equal(e.Payload, other.Payload)
}
