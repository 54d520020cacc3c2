package sealbox

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

// senderBox generates an ephemeral key pair and derives the box shared with
// recipient.
func senderBox(recipient PublicKey) (PublicKey, *Box, error) {
	eph, err := GenerateKey()
	if err != nil {
		return PublicKey{}, nil, err
	}
	box, err := eph.SealTo(recipient)
	if err != nil {
		return PublicKey{}, nil, err
	}
	return eph.Public(), box, nil
}

func TestSealOpen(t *testing.T) {
	c := qt.New(t)

	recipient, err := GenerateKey()
	c.Assert(err, qt.IsNil)

	eph, sender, err := senderBox(recipient.Public())
	c.Assert(err, qt.IsNil)
	ad := []byte("poll 1")
	sealed, err := sender.Seal([]byte{1}, ad)
	c.Assert(err, qt.IsNil)
	c.Assert(sealed, qt.HasLen, Overhead+1)

	box, err := recipient.OpenFrom(eph)
	c.Assert(err, qt.IsNil)
	plain, err := box.Open(sealed, ad)
	c.Assert(err, qt.IsNil)
	c.Assert(plain, qt.DeepEquals, []byte{1})

	// two seals of the same message differ
	again, err := sender.Seal([]byte{1}, ad)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.Not(qt.DeepEquals), sealed)
}

func TestOpenRejects(t *testing.T) {
	c := qt.New(t)

	recipient, err := GenerateKey()
	c.Assert(err, qt.IsNil)
	eph, sender, err := senderBox(recipient.Public())
	c.Assert(err, qt.IsNil)
	sealed, err := sender.Seal([]byte{0}, []byte("ad"))
	c.Assert(err, qt.IsNil)
	box, err := recipient.OpenFrom(eph)
	c.Assert(err, qt.IsNil)

	// different additional data
	_, err = box.Open(sealed, []byte("other"))
	c.Assert(err, qt.ErrorIs, ErrOpen)

	// flipped bit
	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 1
	_, err = box.Open(tampered, []byte("ad"))
	c.Assert(err, qt.ErrorIs, ErrOpen)

	// truncated
	_, err = box.Open(sealed[:Overhead-1], []byte("ad"))
	c.Assert(err, qt.ErrorIs, ErrOpen)

	// another recipient
	other, err := GenerateKey()
	c.Assert(err, qt.IsNil)
	otherBox, err := other.OpenFrom(eph)
	c.Assert(err, qt.IsNil)
	_, err = otherBox.Open(sealed, []byte("ad"))
	c.Assert(err, qt.ErrorIs, ErrOpen)

	// the all zero point is of low order
	_, err = recipient.OpenFrom(PublicKey{})
	c.Assert(err, qt.ErrorIs, ErrInvalidKey)
}

func TestKeyFromSeed(t *testing.T) {
	c := qt.New(t)

	k1, err := KeyFromSeed([]byte("signature"))
	c.Assert(err, qt.IsNil)
	k2, err := KeyFromSeed([]byte("signature"))
	c.Assert(err, qt.IsNil)
	c.Assert(k1.Public(), qt.Equals, k2.Public())

	k3, err := KeyFromSeed([]byte("another signature"))
	c.Assert(err, qt.IsNil)
	c.Assert(k3.Public(), qt.Not(qt.Equals), k1.Public())

	_, err = KeyFromSeed(nil)
	c.Assert(err, qt.ErrorMatches, "sealbox: empty seed")

	// a static sender key works the same way as an ephemeral one
	recipient, err := GenerateKey()
	c.Assert(err, qt.IsNil)
	box, err := k1.SealTo(recipient.Public())
	c.Assert(err, qt.IsNil)
	sealed, err := box.Seal([]byte("yes"), nil)
	c.Assert(err, qt.IsNil)
	opener, err := recipient.OpenFrom(k1.Public())
	c.Assert(err, qt.IsNil)
	plain, err := opener.Open(sealed, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(string(plain), qt.Equals, "yes")
}
