package elgamal

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
)

// Encrypt function encrypts a message using the public key provided as
// elliptic curve point. It generates a random k and returns the two points
// that represent the encrypted message and the random k used to encrypt it.
func Encrypt(publicKey ecc.Point, msg *big.Int) (ecc.Point, ecc.Point, *big.Int, error) {
	k, err := RandK(publicKey)
	if err != nil {
		return nil, nil, nil, err
	}
	c1, c2 := EncryptWithK(publicKey, msg, k)
	return c1, c2, k, nil
}

// GenerateKey generates a new public/private ElGamal encryption key pair.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	d, err := RandK(curve)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	publicKey = curve.New()
	publicKey.ScalarBaseMult(d)
	return publicKey, d, nil
}

// DecryptPoint returns the plaintext point M = c2 - d·c1.
func DecryptPoint(privateKey *big.Int, c1, c2 ecc.Point) ecc.Point {
	tmp := c1.New()
	tmp.ScalarMult(c1, privateKey)
	tmp.Neg(tmp)
	m := c2.New()
	m.Add(c2, tmp)
	return m
}

// Decrypt decrypts (c1,c2) with the secret key d and searches the
// discrete log m in the interval [0,maxMessage].
//
// It always returns the plaintext point M = c2 – d·c1.
// If m is not contained in the requested interval an error is returned.
func Decrypt(
	privateKey *big.Int,
	c1, c2 ecc.Point,
	maxMessage uint64,
) (M ecc.Point, message *big.Int, err error) {
	if privateKey == nil || privateKey.Sign() <= 0 {
		return nil, nil, fmt.Errorf("decrypt: empty or negative private key")
	}
	if maxMessage == 0 {
		return nil, nil, fmt.Errorf("decrypt: maxMessage == 0")
	}
	M = DecryptPoint(privateKey, c1, c2)
	G := c2.New()
	G.SetGenerator()
	message, err = BabyStepGiantStepECC(M, G, maxMessage)
	if err != nil {
		return nil, nil, err
	}
	return M, message, nil
}

// CheckK checks if a given k was used to produce the ciphertext C1 = k·G.
// This does not require decrypting the message or computing the discrete log.
func CheckK(c1 ecc.Point, k *big.Int) bool {
	kCheck := c1.New()
	kCheck.ScalarBaseMult(k)
	return kCheck.Equal(c1)
}
