// Package bjj implements the BabyJubJub elliptic curve operations using the iden3 library.
// It provides a wrapper around the iden3 implementation to conform to the ecc.Point interface.
package bjj

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	babyjubjub "github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
)

// CurveType is the identifier for the BabyJubJub curve implementation using iden3 library
const CurveType = "bjj_iden3"

// PointSize is the length in bytes of a compressed point.
const PointSize = 32

// ErrInvalidPoint is returned when decoding bytes that are not a canonical
// encoding of a point of the prime order subgroup.
var ErrInvalidPoint = errors.New("invalid babyjubjub point")

// BJJ is the affine representation of the BabyJubJub group element.
type BJJ struct {
	inner *babyjubjub.Point
}

// New creates a new BJJ point (identity element by default).
func New() ecc.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

// New creates a new BJJ point (identity element by default)
func (g *BJJ) New() ecc.Point {
	return New()
}

// Order returns the order of the BabyJubJub curve subgroup
func (g *BJJ) Order() *big.Int {
	return babyjubjub.SubOrder
}

// Add computes the addition of two curve points and stores the result in the receiver
func (g *BJJ) Add(a, b ecc.Point) {
	g.inner = a.(*BJJ).inner.Projective().Add(a.(*BJJ).inner.Projective(), b.(*BJJ).inner.Projective()).Affine()
}

// ScalarMult computes the scalar multiplication of a point and stores the result in the receiver.
// Negative scalars and scalars larger than the order are reduced first.
func (g *BJJ) ScalarMult(a ecc.Point, scalar *big.Int) {
	s := new(big.Int).Mod(scalar, babyjubjub.SubOrder)
	g.inner = babyjubjub.NewPoint().Mul(s, a.(*BJJ).inner)
}

// ScalarBaseMult computes the scalar multiplication of the base point and stores the result in the receiver
func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	s := new(big.Int).Mod(scalar, babyjubjub.SubOrder)
	g.inner = babyjubjub.NewPoint().Mul(s, babyjubjub.B8)
}

// Neg computes the negation of a curve point and stores the result in the receiver.
// On a twisted Edwards curve -(x, y) = (-x, y).
func (g *BJJ) Neg(a ecc.Point) {
	src := a.(*BJJ).inner
	x := new(big.Int).Neg(src.X)
	x.Mod(x, constants.Q)
	g.inner = &babyjubjub.Point{X: x, Y: new(big.Int).Set(src.Y)}
}

// Set copies the value from another curve point
func (g *BJJ) Set(a ecc.Point) {
	src := a.(*BJJ).inner
	g.inner = &babyjubjub.Point{X: new(big.Int).Set(src.X), Y: new(big.Int).Set(src.Y)}
}

// SetZero sets the point to the identity element (0, 1)
func (g *BJJ) SetZero() {
	g.inner = babyjubjub.NewPoint()
}

// SetGenerator sets the point to the base generator of the curve
func (g *BJJ) SetGenerator() {
	g.inner = &babyjubjub.Point{
		X: new(big.Int).Set(babyjubjub.B8.X),
		Y: new(big.Int).Set(babyjubjub.B8.Y),
	}
}

// Equal checks if two curve points are equal
func (g *BJJ) Equal(a ecc.Point) bool {
	other := a.(*BJJ).inner
	return g.inner.X.Cmp(other.X) == 0 && g.inner.Y.Cmp(other.Y) == 0
}

// IsZero reports whether the point is the identity element.
func (g *BJJ) IsZero() bool {
	return g.inner.X.Sign() == 0 && g.inner.Y.Cmp(big.NewInt(1)) == 0
}

// Marshal compresses and serializes the point to a byte slice
func (g *BJJ) Marshal() []byte {
	b := g.inner.Compress()
	return b[:]
}

// Unmarshal deserializes and decompresses a point from a byte slice. Only
// canonical encodings of points in the prime order subgroup are accepted.
func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) != PointSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPoint, PointSize, len(buf))
	}
	var b32 [PointSize]byte
	copy(b32[:], buf)
	p, err := babyjubjub.NewPoint().Decompress(b32)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	if p.Y.Cmp(constants.Q) >= 0 {
		return fmt.Errorf("%w: y coordinate out of field", ErrInvalidPoint)
	}
	if !p.InCurve() || !p.InSubGroup() {
		return fmt.Errorf("%w: not in the prime order subgroup", ErrInvalidPoint)
	}
	if c := p.Compress(); !bytes.Equal(c[:], buf) {
		return fmt.Errorf("%w: non canonical encoding", ErrInvalidPoint)
	}
	g.inner = p
	return nil
}

// Point returns the x and y coordinates of the point
func (g *BJJ) Point() (*big.Int, *big.Int) {
	return g.inner.X, g.inner.Y
}

// String returns a string representation of the point
func (g *BJJ) String() string {
	return fmt.Sprintf("%s,%s", g.inner.X.String(), g.inner.Y.String())
}

// Type returns the curve type identifier
func (g *BJJ) Type() string {
	return CurveType
}
