package poseidon

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

func TestMultiPoseidon(t *testing.T) {
	c := qt.New(t)

	_, err := MultiPoseidon()
	c.Assert(err, qt.ErrorMatches, "no inputs provided")

	inputs := make([]*big.Int, 40)
	for i := range inputs {
		inputs[i] = big.NewInt(int64(i + 1))
	}

	short, err := MultiPoseidon(inputs[:3]...)
	c.Assert(err, qt.IsNil)
	direct, err := poseidon.Hash(inputs[:3])
	c.Assert(err, qt.IsNil)
	c.Assert(short.Cmp(direct), qt.Equals, 0)

	// 40 inputs are hashed as three chunks of 16, 16 and 8
	h1, _ := poseidon.Hash(inputs[:16])
	h2, _ := poseidon.Hash(inputs[16:32])
	h3, _ := poseidon.Hash(inputs[32:])
	expected, err := poseidon.Hash([]*big.Int{h1, h2, h3})
	c.Assert(err, qt.IsNil)
	long, err := MultiPoseidon(inputs...)
	c.Assert(err, qt.IsNil)
	c.Assert(long.Cmp(expected), qt.Equals, 0)
}

func TestHashToScalar(t *testing.T) {
	c := qt.New(t)

	order := big.NewInt(1000003)
	s, err := HashToScalar(order, big.NewInt(7), big.NewInt(8))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Cmp(order) < 0, qt.IsTrue)
	c.Assert(s.Sign() >= 0, qt.IsTrue)
}
