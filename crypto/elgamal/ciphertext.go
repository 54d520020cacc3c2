package elgamal

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
)

// sizePoint is the length of a compressed point; a serialized ciphertext is
// C1 || C2.
const (
	sizePoint      = 32
	SizeCiphertext = 2 * sizePoint
)

// Ciphertext is an ElGamal ciphertext (C1, C2) = (k·G, m·G + k·P).
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext returns the trivial encryption of zero (both points set to
// the identity) on the given curve.
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// Encrypt encrypts msg under publicKey with randomness k, or a fresh random k
// when it is nil, and stores the result in z, which is also returned.
func (z *Ciphertext) Encrypt(msg *big.Int, publicKey ecc.Point, k *big.Int) (*Ciphertext, error) {
	if k == nil {
		var err error
		if k, err = RandK(publicKey); err != nil {
			return nil, fmt.Errorf("elgamal encryption failed: %w", err)
		}
	}
	z.C1, z.C2 = EncryptWithK(publicKey, msg, k)
	return z, nil
}

// Add sets z to the homomorphic sum x + y and returns z.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	c1, c2 := x.C1.New(), x.C2.New()
	c1.Add(x.C1, y.C1)
	c2.Add(x.C2, y.C2)
	z.C1, z.C2 = c1, c2
	return z
}

// Sub sets z to the homomorphic difference x - y and returns z.
func (z *Ciphertext) Sub(x, y *Ciphertext) *Ciphertext {
	neg1, neg2 := y.C1.New(), y.C2.New()
	neg1.Neg(y.C1)
	neg2.Neg(y.C2)
	return z.Add(x, &Ciphertext{C1: neg1, C2: neg2})
}

// AddPlain sets z to x with the public constant m added to the encrypted
// message (C2 += m·G) and returns z.
func (z *Ciphertext) AddPlain(x *Ciphertext, m *big.Int) *Ciphertext {
	mG := x.C2.New()
	mG.ScalarBaseMult(m)
	c2 := x.C2.New()
	c2.Add(x.C2, mG)
	c1 := x.C1.New()
	c1.Set(x.C1)
	z.C1, z.C2 = c1, c2
	return z
}

// IsZero reports whether both points are the identity, that is, the trivial
// encryption of zero.
func (z *Ciphertext) IsZero() bool {
	return z.C1.IsZero() && z.C2.IsZero()
}

// Equal reports whether both ciphertexts hold the same points.
func (z *Ciphertext) Equal(x *Ciphertext) bool {
	return z.C1.Equal(x.C1) && z.C2.Equal(x.C2)
}

// Serialize returns C1 || C2 as compressed points.
func (z *Ciphertext) Serialize() []byte {
	buf := make([]byte, 0, SizeCiphertext)
	buf = append(buf, z.C1.Marshal()...)
	return append(buf, z.C2.Marshal()...)
}

// Deserialize decodes C1 || C2 into z. The curve is taken from the points
// z already holds, so z must come from NewCiphertext.
func (z *Ciphertext) Deserialize(data []byte) error {
	if len(data) != SizeCiphertext {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidCiphertext, len(data), SizeCiphertext)
	}
	c1, c2 := z.C1.New(), z.C2.New()
	if err := c1.Unmarshal(data[:sizePoint]); err != nil {
		return fmt.Errorf("%w: c1: %w", ErrInvalidCiphertext, err)
	}
	if err := c2.Unmarshal(data[sizePoint:]); err != nil {
		return fmt.Errorf("%w: c2: %w", ErrInvalidCiphertext, err)
	}
	z.C1, z.C2 = c1, c2
	return nil
}

// String returns a string representation of the ciphertext.
func (z *Ciphertext) String() string {
	return fmt.Sprintf("{C1: %s, C2: %s}", z.C1, z.C2)
}
