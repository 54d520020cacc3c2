// Package elgamal implements additively homomorphic (exponential) ElGamal
// encryption over an ecc.Point group, together with the bounded discrete log
// search needed to decrypt small messages and Chaum-Pedersen equality proofs.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
)

// RandK generates a random non-zero scalar in [1, order-1] for the curve of
// the given point.
func RandK(curve ecc.Point) (*big.Int, error) {
	order := curve.Order()
	for {
		k, err := rand.Int(rand.Reader, order)
		if err != nil {
			return nil, fmt.Errorf("failed to generate random k: %w", err)
		}
		if k.Sign() != 0 {
			return k, nil
		}
	}
}

// EncryptWithK function encrypts a message using the public key provided as
// elliptic curve point and the random k value provided. It returns the two
// points C1 = k·G and C2 = msg·G + k·publicKey.
func EncryptWithK(pubKey ecc.Point, msg, k *big.Int) (ecc.Point, ecc.Point) {
	c1 := pubKey.New()
	c1.ScalarBaseMult(k)
	s := pubKey.New()
	s.ScalarMult(pubKey, k)
	m := pubKey.New()
	m.ScalarBaseMult(msg)
	c2 := pubKey.New()
	c2.Add(m, s)
	return c1, c2
}
