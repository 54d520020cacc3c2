// Package poseidon hashes arbitrary length lists of field elements with the
// Poseidon permutation over the BN254 scalar field.
package poseidon

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// maxInputs is the widest Poseidon instance provided by iden3.
const maxInputs = 16

// MultiPoseidon computes the Poseidon hash of a variable number of inputs.
// Up to 16 inputs are hashed directly; longer lists are split in chunks of
// 16 whose digests are hashed again, recursively.
func MultiPoseidon(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	if len(inputs) <= maxInputs {
		return poseidon.Hash(inputs)
	}
	hashes := make([]*big.Int, 0, (len(inputs)+maxInputs-1)/maxInputs)
	for chunk := range slices.Chunk(inputs, maxInputs) {
		h, err := poseidon.Hash(chunk)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return MultiPoseidon(hashes...)
}

// HashToScalar hashes inputs and reduces the digest modulo order.
func HashToScalar(order *big.Int, inputs ...*big.Int) (*big.Int, error) {
	digest, err := MultiPoseidon(inputs...)
	if err != nil {
		return nil, err
	}
	return digest.Mod(digest, order), nil
}
