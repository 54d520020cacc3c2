package elgamal

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
	"github.com/vocdoni/davinci-tally/crypto/ecc/curves"
)

// Vector is a fixed length list of ciphertexts under the same key, such as
// the counters of a tally. All operations are element-wise.
type Vector struct {
	CurveType   string        `json:"curveType"`
	Ciphertexts []*Ciphertext `json:"ciphertexts"`
}

// NewVector creates a vector of n trivial encryptions of zero.
func NewVector(curve ecc.Point, n int) *Vector {
	z := &Vector{
		CurveType:   curve.Type(),
		Ciphertexts: make([]*Ciphertext, n),
	}
	for i := range z.Ciphertexts {
		z.Ciphertexts[i] = NewCiphertext(curve)
	}
	return z
}

// Len returns the number of ciphertexts.
func (z *Vector) Len() int {
	return len(z.Ciphertexts)
}

// Valid reports whether every ciphertext is set and the curve is supported.
func (z *Vector) Valid() bool {
	for _, c := range z.Ciphertexts {
		if c == nil || c.C1 == nil || c.C2 == nil {
			return false
		}
	}
	return curves.IsValid(z.CurveType)
}

// Encrypt encrypts messages[i] into the i-th ciphertext, each one with its
// own fresh randomness, and returns z.
func (z *Vector) Encrypt(messages []*big.Int, publicKey ecc.Point) (*Vector, error) {
	if len(messages) != z.Len() {
		return nil, fmt.Errorf("expected %d messages, got %d", z.Len(), len(messages))
	}
	for i := range z.Ciphertexts {
		if _, err := z.Ciphertexts[i].Encrypt(messages[i], publicKey, nil); err != nil {
			return nil, err
		}
	}
	return z, nil
}

// Add adds two vectors element-wise and stores the result in the receiver,
// which is also returned.
func (z *Vector) Add(x, y *Vector) (*Vector, error) {
	if x.Len() != z.Len() || y.Len() != z.Len() {
		return nil, fmt.Errorf("vector length mismatch: %d, %d, %d", z.Len(), x.Len(), y.Len())
	}
	for i := range z.Ciphertexts {
		z.Ciphertexts[i].Add(x.Ciphertexts[i], y.Ciphertexts[i])
	}
	return z, nil
}

// Serialize returns the concatenation of the serialized ciphertexts.
func (z *Vector) Serialize() []byte {
	var buf bytes.Buffer
	for _, c := range z.Ciphertexts {
		buf.Write(c.Serialize())
	}
	return buf.Bytes()
}

// Deserialize decodes data into the ciphertexts of z. The input must be
// exactly Len()*SizeCiphertext bytes.
func (z *Vector) Deserialize(data []byte) error {
	if !curves.IsValid(z.CurveType) {
		return fmt.Errorf("%w: unsupported curve %q", ErrInvalidCiphertext, z.CurveType)
	}
	if len(data) != z.Len()*SizeCiphertext {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidCiphertext, len(data), z.Len()*SizeCiphertext)
	}
	curve := curves.New(z.CurveType)
	for i := range z.Ciphertexts {
		c := NewCiphertext(curve)
		if err := c.Deserialize(data[i*SizeCiphertext : (i+1)*SizeCiphertext]); err != nil {
			return fmt.Errorf("ciphertext %d: %w", i, err)
		}
		z.Ciphertexts[i] = c
	}
	return nil
}
