// Package mpc is the execution substrate of the tally engine: an in-process
// cluster of nodes holding a threshold ElGamal key, plus the x25519 key voters
// seal ballots to. It exposes sealing under Pool and Shared domains, a
// protected evaluation boundary in which sealed values can be combined, and
// the declassification of a single boolean.
package mpc

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/davinci-tally/crypto/ecc"
	"github.com/vocdoni/davinci-tally/crypto/ecc/curves"
	"github.com/vocdoni/davinci-tally/crypto/elgamal"
	"github.com/vocdoni/davinci-tally/crypto/elgamal/dkg"
	"github.com/vocdoni/davinci-tally/crypto/sealbox"
	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/types"
)

const (
	// DefaultRevealWindow bounds |yes - no| for Reveal.
	DefaultRevealWindow = 1 << 24
	// MaxRevealWindow keeps the discrete log table around 10^5 entries.
	MaxRevealWindow = 1 << 32
	// DefaultCurve is the curve of the threshold key.
	DefaultCurve = "bjj_iden3"
)

// ClusterConfig configures a Cluster.
type ClusterConfig struct {
	// Nodes is the number of key holders.
	Nodes int
	// Threshold is the number of nodes needed to decrypt.
	Threshold int
	// RevealWindow is the largest |yes - no| Reveal can decide. Zero means
	// DefaultRevealWindow.
	RevealWindow uint64
	// Curve is the curve type of the threshold key. Empty means
	// DefaultCurve.
	Curve string
}

func (c *ClusterConfig) normalize() error {
	if c.Curve == "" {
		c.Curve = DefaultCurve
	}
	if !curves.IsValid(c.Curve) {
		return fmt.Errorf("unsupported curve %q", c.Curve)
	}
	if c.RevealWindow == 0 {
		c.RevealWindow = DefaultRevealWindow
	}
	if c.RevealWindow > MaxRevealWindow {
		return fmt.Errorf("reveal window %d exceeds %d", c.RevealWindow, uint64(MaxRevealWindow))
	}
	if c.Nodes < 1 {
		return fmt.Errorf("invalid number of nodes %d", c.Nodes)
	}
	if c.Threshold < 1 || c.Threshold > c.Nodes {
		return fmt.Errorf("invalid threshold %d for %d nodes", c.Threshold, c.Nodes)
	}
	return nil
}

type node struct {
	participant *dkg.Participant
	publicShare ecc.Point
}

// Cluster is a set of nodes sharing a threshold ElGamal key generated with a
// distributed key generation at construction time. Key shares live only in
// memory.
type Cluster struct {
	conf        ClusterConfig
	curve       ecc.Point
	ids         []int
	nodes       map[int]*node
	publicKey   ecc.Point
	exchange    *sealbox.PrivateKey
	fingerprint Fingerprint

	dlogOnce sync.Once
	dlog     *elgamal.DLogTable
	dlogErr  error

	pollsMu sync.RWMutex
	polls   map[types.PollID]struct{}
}

// NewCluster runs the key generation among conf.Nodes in-process nodes and
// returns the resulting cluster.
func NewCluster(conf ClusterConfig) (*Cluster, error) {
	if err := conf.normalize(); err != nil {
		return nil, err
	}
	c := &Cluster{
		conf:  conf,
		curve: curves.New(conf.Curve),
		nodes: make(map[int]*node, conf.Nodes),
		polls: make(map[types.PollID]struct{}),
	}
	for i := 1; i <= conf.Nodes; i++ {
		c.ids = append(c.ids, i)
	}
	if err := c.runDKG(); err != nil {
		return nil, fmt.Errorf("key generation: %w", err)
	}
	var err error
	if c.exchange, err = sealbox.GenerateKey(); err != nil {
		return nil, err
	}
	c.fingerprint = fingerprint(c.publicKey, c.exchange.Public())
	log.Infow("mpc cluster ready",
		"nodes", conf.Nodes,
		"threshold", conf.Threshold,
		"revealWindow", conf.RevealWindow,
		"fingerprint", c.fingerprint.String())
	return c, nil
}

// runDKG deals, exchanges and verifies the shares of every node, and checks
// all nodes agree on the public key.
func (c *Cluster) runDKG() error {
	participants := make(map[int]*dkg.Participant, len(c.ids))
	allPublicCoeffs := make(map[int][]ecc.Point, len(c.ids))
	for _, id := range c.ids {
		p, err := dkg.NewParticipant(id, c.conf.Threshold, c.ids, c.curve)
		if err != nil {
			return err
		}
		if err := p.GenerateSecretPolynomial(); err != nil {
			return err
		}
		p.ComputeShares()
		participants[id] = p
		allPublicCoeffs[id] = p.PublicCoeffs
	}
	for _, p := range participants {
		for id, dealer := range participants {
			if id == p.ID {
				continue
			}
			if err := p.ReceiveShare(id, dealer.SecretShares[p.ID], dealer.PublicCoeffs); err != nil {
				return err
			}
		}
		if err := p.AggregateShares(); err != nil {
			return err
		}
		p.AggregatePublicKey(allPublicCoeffs)
	}
	c.publicKey = participants[c.ids[0]].PublicKey
	for _, id := range c.ids {
		p := participants[id]
		if !p.PublicKey.Equal(c.publicKey) {
			return fmt.Errorf("node %d derived a different public key", id)
		}
		c.nodes[id] = &node{
			participant: p,
			publicShare: dkg.PublicShare(id, allPublicCoeffs),
		}
	}
	return nil
}

// Info describes the public parameters of a cluster.
type Info struct {
	Nodes         int            `json:"nodes"`
	Threshold     int            `json:"threshold"`
	RevealWindow  uint64         `json:"revealWindow"`
	Curve         string         `json:"curve"`
	EncryptionKey types.HexBytes `json:"encryptionKey"`
	ExchangeKey   types.HexBytes `json:"exchangeKey"`
	Fingerprint   Fingerprint    `json:"fingerprint"`
}

// Info returns the public parameters of the cluster.
func (c *Cluster) Info() Info {
	exch := c.exchange.Public()
	return Info{
		Nodes:         c.conf.Nodes,
		Threshold:     c.conf.Threshold,
		RevealWindow:  c.conf.RevealWindow,
		Curve:         c.conf.Curve,
		EncryptionKey: c.publicKey.Marshal(),
		ExchangeKey:   exch[:],
		Fingerprint:   c.fingerprint,
	}
}

// Fingerprint identifies the keys of the cluster.
func (c *Cluster) Fingerprint() Fingerprint {
	return c.fingerprint
}

// Pool registers the Pool domain of pollID and returns its capability.
// Calling it again for the same poll returns an equivalent context.
func (c *Cluster) Pool(pollID types.PollID) (*PoolContext, error) {
	if !pollID.IsValid() {
		return nil, fmt.Errorf("%w: empty poll ID", ErrContext)
	}
	c.pollsMu.Lock()
	c.polls[pollID] = struct{}{}
	c.pollsMu.Unlock()
	return &PoolContext{
		cluster: c,
		domain:  Domain{Kind: DomainPool, PollID: pollID, Pool: c.fingerprint},
	}, nil
}

// owns reports whether d is a registered Pool domain of the cluster.
func (c *Cluster) owns(d Domain) bool {
	if !d.IsPool() || d.Pool != c.fingerprint || d.Validate() != nil {
		return false
	}
	c.pollsMu.RLock()
	defer c.pollsMu.RUnlock()
	_, ok := c.polls[d.PollID]
	return ok
}

func (c *Cluster) keys(pollID types.PollID) PoolKeys {
	exch := c.exchange.Public()
	return PoolKeys{
		PollID:        pollID,
		EncryptionKey: c.publicKey.Marshal(),
		ExchangeKey:   exch[:],
		Fingerprint:   c.fingerprint,
	}
}

// dlogTable returns the discrete log table for [0, 2·RevealWindow], built
// on first use.
func (c *Cluster) dlogTable() (*elgamal.DLogTable, error) {
	c.dlogOnce.Do(func() {
		g := c.curve.New()
		g.SetGenerator()
		c.dlog, c.dlogErr = elgamal.NewDLogTable(g, 2*c.conf.RevealWindow)
	})
	return c.dlog, c.dlogErr
}

// thresholdDecrypt decrypts ct with the first Threshold nodes in ID order.
// Every partial decryption is verified against the node's public share. The
// message must lie in [0, 2·RevealWindow].
func (c *Cluster) thresholdDecrypt(ct *elgamal.Ciphertext) (*big.Int, error) {
	signers := slices.Clone(c.ids[:c.conf.Threshold])
	shares := make([]ecc.Point, len(signers))
	var g errgroup.Group
	for i, id := range signers {
		g.Go(func() error {
			n := c.nodes[id]
			pd, err := n.participant.ComputePartialDecryption(ct.C1)
			if err != nil {
				return err
			}
			if err := dkg.VerifyPartialDecryption(n.publicShare, ct.C1, pd); err != nil {
				return err
			}
			shares[i] = pd.Share
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("threshold decryption: %w", err)
	}
	partials := make(map[int]ecc.Point, len(signers))
	for i, id := range signers {
		partials[id] = shares[i]
	}
	m, err := dkg.CombinePartialDecryptions(ct.C2, partials, signers)
	if err != nil {
		return nil, fmt.Errorf("threshold decryption: %w", err)
	}
	table, err := c.dlogTable()
	if err != nil {
		return nil, err
	}
	x, err := table.Solve(m)
	if errors.Is(err, elgamal.ErrDiscreteLogNotFound) {
		return nil, ErrRevealWindow
	}
	return x, err
}
