package mpc

import (
	"encoding/hex"
	"fmt"

	"github.com/vocdoni/davinci-tally/crypto/sealbox"
	"github.com/vocdoni/davinci-tally/types"
)

// DomainKind tells who can unseal a ciphertext.
type DomainKind uint8

const (
	// DomainUnknown is the zero value and never valid.
	DomainUnknown DomainKind = iota
	// DomainPool ciphertexts can only be unsealed by the cluster.
	DomainPool
	// DomainShared ciphertexts are shared by one voter and the cluster.
	DomainShared
)

// String returns the name of the kind.
func (k DomainKind) String() string {
	switch k {
	case DomainPool:
		return "pool"
	case DomainShared:
		return "shared"
	default:
		return "unknown"
	}
}

// FingerprintSize is the size of a cluster fingerprint.
const FingerprintSize = 32

// Fingerprint identifies the public keys of a cluster.
type Fingerprint [FingerprintSize]byte

// String returns the 0x-prefixed hex form of the fingerprint.
func (f Fingerprint) String() string {
	return "0x" + hex.EncodeToString(f[:])
}

// domainBytesLen is the size of the binary domain encoding:
// kind || poll || pool || voter.
const domainBytesLen = 1 + types.PollIDLen + FingerprintSize + sealbox.KeySize

// Domain is the cryptographic scope a ciphertext was sealed under. Pool
// domains are identified by the poll and the cluster fingerprint; Shared
// domains add the voter's x25519 public key.
type Domain struct {
	Kind   DomainKind        `json:"kind"`
	PollID types.PollID      `json:"pollId"`
	Pool   Fingerprint       `json:"pool"`
	Voter  sealbox.PublicKey `json:"voter"`
}

// IsPool reports whether d is a Pool domain.
func (d Domain) IsPool() bool {
	return d.Kind == DomainPool
}

// IsShared reports whether d is a Shared domain.
func (d Domain) IsShared() bool {
	return d.Kind == DomainShared
}

// Owner returns the Pool domain d belongs to. For a Pool domain that is d
// itself.
func (d Domain) Owner() Domain {
	return Domain{Kind: DomainPool, PollID: d.PollID, Pool: d.Pool}
}

// Compatible reports whether ciphertexts of d and other may be combined:
// both belong to the same poll of the same cluster.
func (d Domain) Compatible(other Domain) bool {
	return d.PollID == other.PollID && d.Pool == other.Pool
}

// Validate checks the domain is well formed for its kind.
func (d Domain) Validate() error {
	if !d.PollID.IsValid() {
		return fmt.Errorf("%w: empty poll ID", ErrContext)
	}
	if d.Pool == (Fingerprint{}) {
		return fmt.Errorf("%w: empty pool fingerprint", ErrContext)
	}
	switch d.Kind {
	case DomainPool:
		if d.Voter != (sealbox.PublicKey{}) {
			return fmt.Errorf("%w: pool domain with voter key", ErrContext)
		}
	case DomainShared:
		if d.Voter == (sealbox.PublicKey{}) {
			return fmt.Errorf("%w: shared domain without voter key", ErrContext)
		}
	default:
		return fmt.Errorf("%w: unknown domain kind %d", ErrContext, d.Kind)
	}
	return nil
}

// Bytes returns the fixed size binary encoding of the domain, used to bind
// sealed payloads to it.
func (d Domain) Bytes() []byte {
	buf := make([]byte, 0, domainBytesLen)
	buf = append(buf, byte(d.Kind))
	buf = append(buf, d.PollID[:]...)
	buf = append(buf, d.Pool[:]...)
	return append(buf, d.Voter[:]...)
}

// String returns a human readable form of the domain.
func (d Domain) String() string {
	if d.IsShared() {
		return fmt.Sprintf("%s/%s/%s/%x", d.Kind, d.PollID, d.Pool, d.Voter[:4])
	}
	return fmt.Sprintf("%s/%s/%s", d.Kind, d.PollID, d.Pool)
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(data []byte) error {
	b, err := types.HexStringToHexBytes(string(data))
	if err != nil {
		return err
	}
	if len(b) != FingerprintSize {
		return fmt.Errorf("invalid fingerprint length: %d", len(b))
	}
	copy(f[:], b)
	return nil
}
