// Package dkg implements a Feldman verifiable secret sharing based
// distributed key generation for threshold ElGamal. Every participant deals
// a random polynomial of degree threshold-1; the sum of all constant terms is
// the decryption key, which never exists in a single place. Any threshold
// participants can jointly decrypt.
package dkg

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
	"github.com/vocdoni/davinci-tally/crypto/elgamal"
)

// Participant represents a participant in the DKG protocol.
type Participant struct {
	ID             int
	Threshold      int
	Participants   []int
	PublicCoeffs   []ecc.Point
	SecretShares   map[int]*big.Int
	ReceivedShares map[int]*big.Int
	PublicKey      ecc.Point

	curve        ecc.Point
	secretCoeffs []*big.Int
	privateShare *big.Int
}

// NewParticipant initializes a new participant. IDs must be positive and
// unique, and 1 <= threshold <= len(participants).
func NewParticipant(id int, threshold int, participants []int, curve ecc.Point) (*Participant, error) {
	if threshold < 1 || threshold > len(participants) {
		return nil, fmt.Errorf("invalid threshold %d for %d participants", threshold, len(participants))
	}
	seen := make(map[int]bool, len(participants))
	for _, pid := range participants {
		if pid <= 0 {
			return nil, fmt.Errorf("invalid participant id %d", pid)
		}
		if seen[pid] {
			return nil, fmt.Errorf("duplicated participant id %d", pid)
		}
		seen[pid] = true
	}
	if !seen[id] {
		return nil, fmt.Errorf("participant %d is not in the participant list", id)
	}
	return &Participant{
		ID:             id,
		Threshold:      threshold,
		Participants:   slices.Clone(participants),
		SecretShares:   make(map[int]*big.Int),
		ReceivedShares: make(map[int]*big.Int),
		curve:          curve,
	}, nil
}

// GenerateSecretPolynomial samples the participant's secret polynomial and
// computes the public commitments coeff·G to each coefficient.
func (p *Participant) GenerateSecretPolynomial() error {
	p.secretCoeffs = make([]*big.Int, 0, p.Threshold)
	p.PublicCoeffs = make([]ecc.Point, 0, p.Threshold)
	for range p.Threshold {
		coeff, err := elgamal.RandK(p.curve)
		if err != nil {
			return fmt.Errorf("participant %d: %w", p.ID, err)
		}
		p.secretCoeffs = append(p.secretCoeffs, coeff)
		commitment := p.curve.New()
		commitment.ScalarBaseMult(coeff)
		p.PublicCoeffs = append(p.PublicCoeffs, commitment)
	}
	return nil
}

// ComputeShares computes shares to send to other participants.
func (p *Participant) ComputeShares() {
	for _, pid := range p.Participants {
		p.SecretShares[pid] = p.evaluatePolynomial(big.NewInt(int64(pid)))
	}
}

// evaluatePolynomial evaluates the secret polynomial at a given x.
func (p *Participant) evaluatePolynomial(x *big.Int) *big.Int {
	order := p.curve.Order()
	result := big.NewInt(0)
	xPower := big.NewInt(1)
	for _, coeff := range p.secretCoeffs {
		term := new(big.Int).Mul(coeff, xPower)
		result.Add(result, term)
		result.Mod(result, order)
		xPower.Mul(xPower, x)
		xPower.Mod(xPower, order)
	}
	return result
}

// ReceiveShare receives a share from another participant, verifying it
// against the dealer's public commitments.
func (p *Participant) ReceiveShare(fromID int, share *big.Int, publicCoeffs []ecc.Point) error {
	if !slices.Contains(p.Participants, fromID) || fromID == p.ID {
		return fmt.Errorf("unexpected share from participant %d", fromID)
	}
	if len(publicCoeffs) != p.Threshold {
		return fmt.Errorf("participant %d sent %d commitments, expected %d", fromID, len(publicCoeffs), p.Threshold)
	}
	if !p.verifyShare(share, publicCoeffs) {
		return fmt.Errorf("invalid share from participant %d", fromID)
	}
	p.ReceivedShares[fromID] = share
	return nil
}

// verifyShare checks share·G == Σ_k publicCoeffs[k]·ID^k.
func (p *Participant) verifyShare(share *big.Int, publicCoeffs []ecc.Point) bool {
	lhs := p.curve.New()
	lhs.ScalarBaseMult(share)
	return lhs.Equal(evaluateCommitments(publicCoeffs, p.ID))
}

// evaluateCommitments returns Σ_k coeffs[k]·x^k.
func evaluateCommitments(coeffs []ecc.Point, x int) ecc.Point {
	rhs := coeffs[0].New()
	xBig := big.NewInt(int64(x))
	xPower := big.NewInt(1)
	for _, commitment := range coeffs {
		term := commitment.New()
		term.ScalarMult(commitment, xPower)
		rhs.Add(rhs, term)
		xPower.Mul(xPower, xBig)
	}
	return rhs
}

// AggregateShares aggregates the received shares to compute the private
// share. It fails until a verified share from every other participant has
// been received.
func (p *Participant) AggregateShares() error {
	own, ok := p.SecretShares[p.ID]
	if !ok {
		return fmt.Errorf("participant %d has not computed its shares", p.ID)
	}
	if len(p.ReceivedShares) != len(p.Participants)-1 {
		return fmt.Errorf("participant %d received %d shares, expected %d",
			p.ID, len(p.ReceivedShares), len(p.Participants)-1)
	}
	order := p.curve.Order()
	p.privateShare = new(big.Int).Set(own)
	for _, share := range p.ReceivedShares {
		p.privateShare.Add(p.privateShare, share)
		p.privateShare.Mod(p.privateShare, order)
	}
	return nil
}

// AggregatePublicKey aggregates the public commitments to compute the public key.
func (p *Participant) AggregatePublicKey(allPublicCoeffs map[int][]ecc.Point) {
	pk := p.curve.New()
	for _, coeffs := range allPublicCoeffs {
		pk.Add(pk, coeffs[0])
	}
	p.PublicKey = pk
}

// PublicShare returns d_i·G, the public verification key of the aggregated
// private share of participant id, computed from everyone's commitments.
func PublicShare(id int, allPublicCoeffs map[int][]ecc.Point) ecc.Point {
	var share ecc.Point
	for _, coeffs := range allPublicCoeffs {
		term := evaluateCommitments(coeffs, id)
		if share == nil {
			share = term
			continue
		}
		share.Add(share, term)
	}
	return share
}
