package bjj

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	babyjubjub "github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"
)

func TestGroupLaw(t *testing.T) {
	c := qt.New(t)

	g := New()
	g.SetGenerator()

	// 2G + 3G == 5G
	a := New()
	a.ScalarBaseMult(big.NewInt(2))
	b := New()
	b.ScalarMult(g, big.NewInt(3))
	sum := New()
	sum.Add(a, b)
	five := New()
	five.ScalarBaseMult(big.NewInt(5))
	c.Assert(sum.Equal(five), qt.IsTrue)

	// P + (-P) == O
	neg := New()
	neg.Neg(five)
	zero := New()
	zero.Add(five, neg)
	c.Assert(zero.IsZero(), qt.IsTrue)
	c.Assert(five.IsZero(), qt.IsFalse)

	// negative scalars wrap around the order
	minusTwo := New()
	minusTwo.ScalarBaseMult(big.NewInt(-2))
	negTwo := New()
	negTwo.Neg(a)
	c.Assert(minusTwo.Equal(negTwo), qt.IsTrue)

	// order·G == O
	o := New()
	o.ScalarBaseMult(babyjubjub.SubOrder)
	c.Assert(o.IsZero(), qt.IsTrue)

	// Add aliasing the receiver
	acc := New()
	acc.Set(a)
	acc.Add(acc, acc)
	four := New()
	four.ScalarBaseMult(big.NewInt(4))
	c.Assert(acc.Equal(four), qt.IsTrue)
	c.Assert(a.Equal(four), qt.IsFalse)
}

func TestMarshalRoundTrip(t *testing.T) {
	c := qt.New(t)

	p := New()
	p.ScalarBaseMult(big.NewInt(123456789))
	buf := p.Marshal()
	c.Assert(buf, qt.HasLen, PointSize)

	q := New()
	c.Assert(q.Unmarshal(buf), qt.IsNil)
	c.Assert(q.Equal(p), qt.IsTrue)

	z := New()
	c.Assert(z.Unmarshal(New().Marshal()), qt.IsNil)
	c.Assert(z.IsZero(), qt.IsTrue)
}

func TestUnmarshalRejects(t *testing.T) {
	c := qt.New(t)

	p := New()
	c.Assert(p.Unmarshal([]byte{1, 2, 3}), qt.ErrorIs, ErrInvalidPoint)

	// all ones: y is out of the base field
	bad := make([]byte, PointSize)
	for i := range bad {
		bad[i] = 0xff
	}
	bad[PointSize-1] = 0x7f
	c.Assert(p.Unmarshal(bad), qt.ErrorIs, ErrInvalidPoint)

	// the full curve has cofactor 8; a point of order 2 (0, -1) is on the
	// curve but outside the prime order subgroup
	lowOrder := &BJJ{inner: &babyjubjub.Point{
		X: big.NewInt(0),
		Y: new(big.Int).Sub(constants.Q, big.NewInt(1)),
	}}
	c.Assert(p.Unmarshal(lowOrder.Marshal()), qt.ErrorIs, ErrInvalidPoint)
}
