package elgamal

import "errors"

var (
	// ErrInvalidCiphertext is returned when decoding bytes that do not hold a
	// valid ciphertext for the curve.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrDiscreteLogNotFound is returned when a decrypted point is not m·G for
	// any m in the searched interval.
	ErrDiscreteLogNotFound = errors.New("discrete log not found in interval")
)
