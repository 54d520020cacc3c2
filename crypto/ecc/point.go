// Package ecc defines the elliptic curve group abstraction used by the
// encryption and key generation packages.
package ecc

import "math/big"

// Point is an element of a prime order elliptic curve group. Methods that
// take operands store the result in the receiver, so callers allocate the
// destination with New first.
type Point interface {
	// New returns a new point of the same curve, set to the identity.
	New() Point
	// Order returns the order of the group generated by the base point.
	Order() *big.Int
	Add(a, b Point)
	ScalarMult(a Point, scalar *big.Int)
	ScalarBaseMult(scalar *big.Int)
	Neg(a Point)
	Set(a Point)
	SetZero()
	SetGenerator()
	Equal(a Point) bool
	IsZero() bool
	// Marshal returns the canonical compressed encoding of the point.
	Marshal() []byte
	// Unmarshal decodes a compressed point, rejecting encodings that are not
	// canonical or do not belong to the prime order subgroup.
	Unmarshal(buf []byte) error
	// Point returns the affine coordinates.
	Point() (*big.Int, *big.Int)
	String() string
	Type() string
}
