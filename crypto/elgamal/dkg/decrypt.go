package dkg

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
	"github.com/vocdoni/davinci-tally/crypto/elgamal"
)

// PartialDecryption is the share S_i = d_i·C1 of participant ID, with a
// proof that it was computed with the key share behind the participant's
// public share.
type PartialDecryption struct {
	ID    int
	Share ecc.Point
	Proof *elgamal.DLEQProof
}

// ComputePartialDecryption computes the partial decryption of c1 using the
// participant's private share.
func (p *Participant) ComputePartialDecryption(c1 ecc.Point) (*PartialDecryption, error) {
	if p.privateShare == nil {
		return nil, fmt.Errorf("participant %d has no private share", p.ID)
	}
	si := c1.New()
	si.ScalarMult(c1, p.privateShare)

	g := c1.New()
	g.SetGenerator()
	pub := c1.New()
	pub.ScalarBaseMult(p.privateShare)
	proof, err := elgamal.ProveDLEQ(p.privateShare, g, pub, c1, si)
	if err != nil {
		return nil, fmt.Errorf("participant %d: %w", p.ID, err)
	}
	return &PartialDecryption{ID: p.ID, Share: si, Proof: proof}, nil
}

// VerifyPartialDecryption checks pd against the public share of its
// participant.
func VerifyPartialDecryption(publicShare, c1 ecc.Point, pd *PartialDecryption) error {
	g := c1.New()
	g.SetGenerator()
	if err := elgamal.VerifyDLEQ(g, publicShare, c1, pd.Share, pd.Proof); err != nil {
		return fmt.Errorf("partial decryption from participant %d: %w", pd.ID, err)
	}
	return nil
}

// CombinePartialDecryptions combines the partial decryptions of the given
// participants into the plaintext point M = C2 - Σ λ_i·S_i.
func CombinePartialDecryptions(c2 ecc.Point, partials map[int]ecc.Point, participants []int) (ecc.Point, error) {
	lagrangeCoeffs, err := LagrangeCoefficients(participants, c2.Order())
	if err != nil {
		return nil, fmt.Errorf("failed to compute Lagrange coefficients: %w", err)
	}
	s := c2.New()
	for _, id := range participants {
		pd, ok := partials[id]
		if !ok {
			return nil, fmt.Errorf("missing partial decryption for participant %d", id)
		}
		term := s.New()
		term.ScalarMult(pd, lagrangeCoeffs[id])
		s.Add(s, term)
	}
	s.Neg(s)
	m := c2.New()
	m.Add(c2, s)
	return m, nil
}

// LagrangeCoefficients computes the Lagrange coefficients at x = 0 for the
// given participant IDs.
func LagrangeCoefficients(participants []int, mod *big.Int) (map[int]*big.Int, error) {
	coeffs := make(map[int]*big.Int, len(participants))
	for _, i := range participants {
		numerator := big.NewInt(1)
		denominator := big.NewInt(1)
		for _, j := range participants {
			if i == j {
				continue
			}
			// numerator *= -j, denominator *= i - j
			numerator.Mul(numerator, big.NewInt(int64(-j)))
			numerator.Mod(numerator, mod)
			denominator.Mul(denominator, big.NewInt(int64(i-j)))
			denominator.Mod(denominator, mod)
		}
		denominatorInv := new(big.Int).ModInverse(denominator, mod)
		if denominatorInv == nil {
			return nil, fmt.Errorf("modular inverse does not exist for denominator %s modulo %s", denominator, mod)
		}
		coeff := new(big.Int).Mul(numerator, denominatorInv)
		coeffs[i] = coeff.Mod(coeff, mod)
	}
	return coeffs, nil
}
