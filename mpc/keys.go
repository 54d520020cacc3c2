package mpc

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
	bjj "github.com/vocdoni/davinci-tally/crypto/ecc/bjj_iden3"
	"github.com/vocdoni/davinci-tally/crypto/sealbox"
	"github.com/vocdoni/davinci-tally/types"
)

// ballot plaintexts
const (
	choiceNo  byte = 0
	choiceYes byte = 1
)

// PoolContext is the capability to seal and evaluate under the Pool domain
// of one poll. It can only be minted by (*Cluster).Pool; the zero value is
// invalid.
type PoolContext struct {
	cluster *Cluster
	domain  Domain
}

// Valid reports whether p was minted by a cluster.
func (p *PoolContext) Valid() bool {
	return p != nil && p.cluster != nil
}

// Domain returns the Pool domain of the context. It is the zero Domain for
// invalid contexts.
func (p *PoolContext) Domain() Domain {
	if !p.Valid() {
		return Domain{}
	}
	return p.domain
}

// Keys returns the public material voters need to seal ballots for the
// poll.
func (p *PoolContext) Keys() PoolKeys {
	if !p.Valid() {
		return PoolKeys{}
	}
	return p.cluster.keys(p.domain.PollID)
}

// PoolKeys is the public half of a PoolContext.
type PoolKeys struct {
	PollID        types.PollID   `json:"pollId"`
	EncryptionKey types.HexBytes `json:"encryptionKey"`
	ExchangeKey   types.HexBytes `json:"exchangeKey"`
	Fingerprint   Fingerprint    `json:"fingerprint"`
}

// fingerprint binds the ElGamal encryption key and the x25519 exchange key
// of a cluster.
func fingerprint(encryptionKey ecc.Point, exchangeKey sealbox.PublicKey) Fingerprint {
	return Fingerprint(crypto.Keccak256Hash(encryptionKey.Marshal(), exchangeKey[:]))
}

// Validate checks the keys are well formed and match their fingerprint.
func (k PoolKeys) Validate() error {
	if !k.PollID.IsValid() {
		return fmt.Errorf("%w: empty poll ID", ErrContext)
	}
	encKey := bjj.New()
	if err := encKey.Unmarshal(k.EncryptionKey); err != nil {
		return fmt.Errorf("%w: encryption key: %v", ErrContext, err)
	}
	if len(k.ExchangeKey) != sealbox.KeySize {
		return fmt.Errorf("%w: exchange key length %d", ErrContext, len(k.ExchangeKey))
	}
	if fingerprint(encKey, sealbox.PublicKey(k.ExchangeKey)) != k.Fingerprint {
		return fmt.Errorf("%w: fingerprint does not match the keys", ErrContext)
	}
	return nil
}

// SealBallot seals a yes/no choice for the poll of keys under a fresh Shared
// domain, using an ephemeral voter key. This runs on the voter side.
func SealBallot(keys PoolKeys, choice bool) (*Envelope, error) {
	voter, err := sealbox.GenerateKey()
	if err != nil {
		return nil, err
	}
	return SealBallotWithKey(keys, choice, voter)
}

// SealBallotWithKey is like SealBallot but uses a long lived voter key, for
// instance one derived with VoterKeyFromSignature.
func SealBallotWithKey(keys PoolKeys, choice bool, voter *sealbox.PrivateKey) (*Envelope, error) {
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	box, err := voter.SealTo(sealbox.PublicKey(keys.ExchangeKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContext, err)
	}
	domain := Domain{
		Kind:   DomainShared,
		PollID: keys.PollID,
		Pool:   keys.Fingerprint,
		Voter:  voter.Public(),
	}
	plaintext := choiceNo
	if choice {
		plaintext = choiceYes
	}
	payload, err := box.Seal([]byte{plaintext}, domain.Bytes())
	if err != nil {
		return nil, err
	}
	return &Envelope{Domain: domain, Payload: payload}, nil
}

// VoterKeyMessage is the message a voter signs with their wallet to derive
// their ballot sealing key.
const VoterKeyMessage = "davinci-tally-encryption-key-v1"

// VoterKeyFromSignature derives a deterministic voter key from a wallet
// signature of VoterKeyMessage, so the key can be recovered from the wallet
// alone.
func VoterKeyFromSignature(signature []byte) (*sealbox.PrivateKey, error) {
	return sealbox.KeyFromSeed(signature)
}
