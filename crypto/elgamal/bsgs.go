package elgamal

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
)

// DLogTable holds the baby steps of a baby-step / giant-step search for
// discrete logs of base alpha in the interval [0, max]. A table is immutable
// once built and can be shared by concurrent Solve calls.
type DLogTable struct {
	alpha ecc.Point
	max   uint64
	m     uint64
	baby  map[string]uint64
	giant ecc.Point // -m·alpha
}

// NewDLogTable precomputes the baby steps j·alpha for j in [0, ⌈√max⌉).
func NewDLogTable(alpha ecc.Point, max uint64) (*DLogTable, error) {
	if max == 0 {
		return nil, fmt.Errorf("bsgs: empty interval")
	}
	// m = ⌈√max⌉ using integer arithmetic only
	m := new(big.Int).Sqrt(new(big.Int).SetUint64(max))
	if new(big.Int).Mul(m, m).Cmp(new(big.Int).SetUint64(max)) < 0 {
		m.Add(m, big.NewInt(1))
	}
	mU64 := m.Uint64()

	t := &DLogTable{
		alpha: alpha.New(),
		max:   max,
		m:     mU64,
		baby:  make(map[string]uint64, mU64),
	}
	t.alpha.Set(alpha)

	baby := alpha.New()
	baby.SetZero()
	for j := uint64(0); j < mU64; j++ {
		t.baby[pointKey(baby)] = j
		baby.Add(baby, alpha)
	}

	t.giant = alpha.New()
	t.giant.ScalarMult(alpha, m)
	t.giant.Neg(t.giant)
	return t, nil
}

// Max returns the inclusive upper bound of the searched interval.
func (t *DLogTable) Max() uint64 {
	return t.max
}

// Solve returns x in [0, max] such that beta = x·alpha.
func (t *DLogTable) Solve(beta ecc.Point) (*big.Int, error) {
	giant := beta.New()
	giant.Set(beta)
	for i := uint64(0); i <= t.m; i++ {
		if j, ok := t.baby[pointKey(giant)]; ok {
			if x := i*t.m + j; x <= t.max {
				return new(big.Int).SetUint64(x), nil
			}
		}
		giant.Add(giant, t.giant)
	}
	return nil, ErrDiscreteLogNotFound
}

// BabyStepGiantStepECC finds x in [0, max] such that beta = x·alpha. Callers
// solving many logs for the same base should build a DLogTable once instead.
func BabyStepGiantStepECC(beta, alpha ecc.Point, max uint64) (*big.Int, error) {
	t, err := NewDLogTable(alpha, max)
	if err != nil {
		return nil, err
	}
	return t.Solve(beta)
}

// pointKey returns a compact encoding to use as map key.
func pointKey(p ecc.Point) string {
	return string(p.Marshal())
}
