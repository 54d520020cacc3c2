// Chaum-Pedersen proof of equality of discrete logs.
//
// Given two bases (B1, B2) and two points (P1, P2), the prover shows it knows
// x with P1 = x·B1 and P2 = x·B2 without revealing x:
//
//	prover:   r random, A1 = r·B1, A2 = r·B2
//	          e = H(B1, P1, B2, P2, A1, A2) mod order   (Fiat-Shamir)
//	          z = r + e·x mod order
//	verifier: z·B1 == A1 + e·P1  and  z·B2 == A2 + e·P2
//
// With B1 = G, P1 = d·G, B2 = C1 and P2 = d·C1 this proves that a partial
// decryption share was computed with the key share d.

package elgamal

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
	"github.com/vocdoni/davinci-tally/crypto/hash/poseidon"
)

// ErrInvalidProof is returned when a Chaum-Pedersen proof does not verify.
var ErrInvalidProof = errors.New("invalid equality proof")

// DLEQProof is a non-interactive Chaum–Pedersen proof that two points share
// the same discrete log with respect to two bases.
type DLEQProof struct {
	A1 ecc.Point // r·B1
	A2 ecc.Point // r·B2
	Z  *big.Int  // r + e·x
}

// ProveDLEQ builds a proof that p1 = x·b1 and p2 = x·b2.
func ProveDLEQ(x *big.Int, b1, p1, b2, p2 ecc.Point) (*DLEQProof, error) {
	order := b1.Order()
	r, err := RandK(b1)
	if err != nil {
		return nil, fmt.Errorf("failed to sample r: %w", err)
	}
	a1 := b1.New()
	a1.ScalarMult(b1, r)
	a2 := b2.New()
	a2.ScalarMult(b2, r)

	e, err := challenge(b1, p1, b2, p2, a1, a2)
	if err != nil {
		return nil, err
	}
	z := new(big.Int).Mul(e, x)
	z.Add(z, r)
	z.Mod(z, order)
	return &DLEQProof{A1: a1, A2: a2, Z: z}, nil
}

// VerifyDLEQ checks a proof built by ProveDLEQ. It returns nil if the proof
// is valid.
func VerifyDLEQ(b1, p1, b2, p2 ecc.Point, proof *DLEQProof) error {
	if proof == nil || proof.A1 == nil || proof.A2 == nil || proof.Z == nil {
		return fmt.Errorf("%w: incomplete proof", ErrInvalidProof)
	}
	e, err := challenge(b1, p1, b2, p2, proof.A1, proof.A2)
	if err != nil {
		return err
	}
	if !checkEquation(b1, p1, proof.A1, proof.Z, e) {
		return fmt.Errorf("%w: first equation fails", ErrInvalidProof)
	}
	if !checkEquation(b2, p2, proof.A2, proof.Z, e) {
		return fmt.Errorf("%w: second equation fails", ErrInvalidProof)
	}
	return nil
}

// checkEquation reports whether z·base == a + e·p.
func checkEquation(base, p, a ecc.Point, z, e *big.Int) bool {
	left := base.New()
	left.ScalarMult(base, z)
	ep := base.New()
	ep.ScalarMult(p, e)
	right := base.New()
	right.Add(a, ep)
	return left.Equal(right)
}

// challenge hashes the coordinates of the points to a scalar below the
// group order using Poseidon.
func challenge(pts ...ecc.Point) (*big.Int, error) {
	inputs := make([]*big.Int, 0, 2*len(pts))
	for _, p := range pts {
		x, y := p.Point()
		inputs = append(inputs, x, y)
	}
	e, err := poseidon.HashToScalar(pts[0].Order(), inputs...)
	if err != nil {
		return nil, fmt.Errorf("failed to hash points: %w", err)
	}
	return e, nil
}
