// Package sealbox provides anonymous public key encryption of short messages:
// an ephemeral x25519 exchange with the recipient key, HKDF-SHA256 key
// derivation and XChaCha20-Poly1305 authenticated encryption.
//
// A sealed message is nonce || ciphertext || tag. The sender's ephemeral
// public key travels next to it, so callers can bind it in the additional
// data.
package sealbox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of x25519 private and public keys.
	KeySize = curve25519.PointSize
	// NonceSize is the size of the random nonce prepended to sealed messages.
	NonceSize = chacha20poly1305.NonceSizeX
	// Overhead is the number of bytes a sealed message adds to the plaintext.
	Overhead = NonceSize + chacha20poly1305.Overhead
)

var kdfInfo = []byte("davinci-tally/sealbox/v1")

var (
	// ErrOpen is returned when a sealed message fails to authenticate.
	ErrOpen = errors.New("sealbox: message authentication failed")
	// ErrInvalidKey is returned for public keys that produce a low order
	// shared secret.
	ErrInvalidKey = errors.New("sealbox: invalid public key")
)

// PublicKey is an x25519 public key.
type PublicKey [KeySize]byte

// PrivateKey is an x25519 private key.
type PrivateKey struct {
	scalar [KeySize]byte
	public PublicKey
}

// GenerateKey returns a new random key pair.
func GenerateKey() (*PrivateKey, error) {
	k := &PrivateKey{}
	if _, err := io.ReadFull(rand.Reader, k.scalar[:]); err != nil {
		return nil, fmt.Errorf("sealbox: cannot read randomness: %w", err)
	}
	pub, err := curve25519.X25519(k.scalar[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("sealbox: %w", err)
	}
	copy(k.public[:], pub)
	return k, nil
}

// Public returns the public key of k.
func (k *PrivateKey) Public() PublicKey {
	return k.public
}

// KeyFromSeed derives a key pair deterministically from seed, such as a
// signature of a fixed message by a long lived wallet key, so the key can be
// recovered from the wallet alone.
func KeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("sealbox: empty seed")
	}
	k := &PrivateKey{scalar: sha256.Sum256(seed)}
	pub, err := curve25519.X25519(k.scalar[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("sealbox: %w", err)
	}
	copy(k.public[:], pub)
	return k, nil
}

// Box is an AEAD keyed for one sender and recipient pair.
type Box struct {
	aead cipher.AEAD
}

// SealTo derives the box used by k to send messages to recipient.
func (k *PrivateKey) SealTo(recipient PublicKey) (*Box, error) {
	return newBox(k, k.public, recipient, recipient)
}

// OpenFrom derives the box used by k to read messages from sender.
func (k *PrivateKey) OpenFrom(sender PublicKey) (*Box, error) {
	return newBox(k, sender, k.public, sender)
}

// newBox computes the x25519 exchange between own and peer and derives the
// AEAD key, salted with both public keys in sender, recipient order.
func newBox(own *PrivateKey, sender, recipient, peer PublicKey) (*Box, error) {
	shared, err := curve25519.X25519(own.scalar[:], peer[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	salt := make([]byte, 0, 2*KeySize)
	salt = append(salt, sender[:]...)
	salt = append(salt, recipient[:]...)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, kdfInfo), key); err != nil {
		return nil, fmt.Errorf("sealbox: key derivation: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealbox: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts and authenticates plaintext and additionalData with a fresh
// random nonce.
func (b *Box) Seal(plaintext, additionalData []byte) ([]byte, error) {
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+chacha20poly1305.Overhead)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("sealbox: cannot read nonce: %w", err)
	}
	return b.aead.Seal(out, out[:NonceSize], plaintext, additionalData), nil
}

// Open authenticates and decrypts a message produced by Seal.
func (b *Box) Open(sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < Overhead {
		return nil, fmt.Errorf("%w: message too short (%d bytes)", ErrOpen, len(sealed))
	}
	plaintext, err := b.aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], additionalData)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
