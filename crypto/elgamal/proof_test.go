package elgamal

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	bjj "github.com/vocdoni/davinci-tally/crypto/ecc/bjj_iden3"
	"github.com/vocdoni/davinci-tally/crypto/ecc/curves"
)

func TestDLEQProof(t *testing.T) {
	c := qt.New(t)
	curve := curves.New(bjj.CurveType)

	// prove that the partial decryption S = d·C1 uses the key behind P = d·G
	pk, sk, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)
	c1, _, _, err := Encrypt(pk, big.NewInt(42))
	c.Assert(err, qt.IsNil)
	s := curve.New()
	s.ScalarMult(c1, sk)
	g := curve.New()
	g.SetGenerator()

	proof, err := ProveDLEQ(sk, g, pk, c1, s)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyDLEQ(g, pk, c1, s, proof), qt.IsNil)

	//  Negative cases (should fail)

	// 1) wrong share
	wrongS := curve.New()
	wrongS.Add(s, g)
	c.Assert(VerifyDLEQ(g, pk, c1, wrongS, proof), qt.ErrorIs, ErrInvalidProof)

	// 2) tampered Z
	badProof := *proof
	badProof.Z = new(big.Int).Add(proof.Z, big.NewInt(1))
	c.Assert(VerifyDLEQ(g, pk, c1, s, &badProof), qt.ErrorIs, ErrInvalidProof)

	// 3) tampered A1
	badProof2 := *proof
	badProof2.A1 = curve.New()
	badProof2.A1.Add(proof.A1, g)
	c.Assert(VerifyDLEQ(g, pk, c1, s, &badProof2), qt.ErrorIs, ErrInvalidProof)

	// 4) another key
	otherPk, _, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyDLEQ(g, otherPk, c1, s, proof), qt.ErrorIs, ErrInvalidProof)

	c.Assert(VerifyDLEQ(g, pk, c1, s, nil), qt.ErrorIs, ErrInvalidProof)
}
