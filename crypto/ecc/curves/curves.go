// Package curves is the registry of the ecc.Point implementations the node
// can be configured with.
package curves

import (
	"slices"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
	bjj_iden3 "github.com/vocdoni/davinci-tally/crypto/ecc/bjj_iden3"
)

// New creates a new instance of a Curve implementation based on the provided
// type string. If the type is not supported, it will panic. The supported
// types are defined in this package via the Curves() function, but you can
// also use the IsValid() function to check if a type is supported.
func New(curveType string) ecc.Point {
	switch curveType {
	case bjj_iden3.CurveType:
		return bjj_iden3.New()
	default:
		panic("unsupported curve type: " + curveType)
	}
}

// Curves returns a list of supported curve types.
func Curves() []string {
	return []string{
		bjj_iden3.CurveType,
	}
}

// IsValid reports whether curveType is a supported curve.
func IsValid(curveType string) bool {
	return slices.Contains(Curves(), curveType)
}
