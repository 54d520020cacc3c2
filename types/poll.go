package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PollIDLen is the size in bytes of a PollID.
const PollIDLen = 16

// PollID identifies a poll. It is a random (version 4) UUID rendered as
// 0x-prefixed hex so it reads like the rest of the identifiers of the node.
type PollID [PollIDLen]byte

// NewPollID returns a fresh random PollID.
func NewPollID() PollID {
	return PollID(uuid.New())
}

// ParsePollID decodes a PollID from its hex form (with or without the 0x
// prefix) or from its canonical UUID form.
func ParsePollID(s string) (PollID, error) {
	if u, err := uuid.Parse(s); err == nil && strings.Contains(s, "-") {
		return PollID(u), nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return PollID{}, fmt.Errorf("invalid poll ID %q: %w", s, err)
	}
	return PollIDFromBytes(b)
}

// PollIDFromBytes copies b into a PollID. It fails if b has the wrong length.
func PollIDFromBytes(b []byte) (PollID, error) {
	var id PollID
	if len(b) != PollIDLen {
		return id, fmt.Errorf("invalid poll ID length: %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// IsValid reports whether the PollID is not the zero value.
func (p PollID) IsValid() bool {
	return p != PollID{}
}

// Bytes returns a copy of the PollID bytes.
func (p PollID) Bytes() []byte {
	return append([]byte(nil), p[:]...)
}

// String returns the 0x-prefixed hex form of the PollID.
func (p PollID) String() string {
	return "0x" + hex.EncodeToString(p[:])
}

// UUID returns the PollID as a UUID.
func (p PollID) UUID() uuid.UUID {
	return uuid.UUID(p)
}

// MarshalText implements encoding.TextMarshaler.
func (p PollID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PollID) UnmarshalText(data []byte) error {
	id, err := ParsePollID(string(data))
	if err != nil {
		return err
	}
	*p = id
	return nil
}
