package sequencer

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vocdoni/davinci-tally/storage"
	"github.com/vocdoni/davinci-tally/types"
)

// AuthorityTokenLen is the length in bytes of a poll authority token.
const AuthorityTokenLen = 32

// newAuthorityToken returns a random poll authority token and the hash that
// is stored in its place.
func newAuthorityToken() (types.HexBytes, types.HexBytes, error) {
	token := make(types.HexBytes, AuthorityTokenLen)
	if _, err := rand.Read(token); err != nil {
		return nil, nil, fmt.Errorf("failed to generate authority token: %w", err)
	}
	return token, ethcrypto.Keccak256(token), nil
}

// authorize checks token against the authority hash of p. Polls without an
// authority hash cannot be revealed.
func authorize(p *storage.Poll, token types.HexBytes) error {
	if len(p.AuthorityHash) == 0 || len(token) != AuthorityTokenLen {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(ethcrypto.Keccak256(token), p.AuthorityHash) != 1 {
		return ErrUnauthorized
	}
	return nil
}
