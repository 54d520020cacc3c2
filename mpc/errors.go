package mpc

import "errors"

var (
	// ErrContext is returned when an encryption context or capability is
	// invalid, or is not owned by the cluster it is used with.
	ErrContext = errors.New("invalid encryption context")
	// ErrDomainMismatch is returned when ciphertexts from incompatible
	// encryption domains are combined.
	ErrDomainMismatch = errors.New("encryption domain mismatch")
	// ErrMalformedCiphertext is returned when a ciphertext cannot be decoded
	// or unsealed as the expected logical type.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	// ErrScopeClosed is returned when a secret handle is used after the
	// evaluation that created it has returned.
	ErrScopeClosed = errors.New("evaluation scope closed")
	// ErrRevealWindow is returned when the tally difference falls outside the
	// window the cluster can decrypt.
	ErrRevealWindow = errors.New("tally difference outside the reveal window")
)
