// Package sequencer coordinates the tally engine with storage. It owns the
// polls served by a cluster, queues the ballots submitted for them and
// applies them one at a time per poll, so no two votes are ever computed
// from the same prior tally.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/storage"
	"github.com/vocdoni/davinci-tally/tally"
	"github.com/vocdoni/davinci-tally/types"
)

var (
	// TickerInterval is the default interval at which queued ballots are
	// applied.
	TickerInterval = 2 * time.Second
	// BallotsPerTick is the maximum number of ballots applied per poll on
	// each tick.
	BallotsPerTick = 256
	// RevealCacheSize is the number of reveal results kept in memory.
	RevealCacheSize = 1024

	ErrPollNotFound = errors.New("poll not found")
	ErrPollInactive = errors.New("poll belongs to another cluster key")
	ErrUnauthorized = errors.New("missing or invalid poll authority token")
)

// Sequencer applies ballots to the tallies of its polls.
type Sequencer struct {
	stg     *storage.Storage
	engine  *tally.Engine
	cluster *mpc.Cluster
	polls   *PollMap

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	reveals     singleflight.Group
	revealCache *lru.Cache[string, bool]
}

// New creates a sequencer. The engine must run on cluster.
func New(stg *storage.Storage, engine *tally.Engine, cluster *mpc.Cluster) (*Sequencer, error) {
	if stg == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if engine == nil || cluster == nil {
		return nil, fmt.Errorf("engine and cluster cannot be nil")
	}
	cache, err := lru.New[string, bool](RevealCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reveal cache: %w", err)
	}
	return &Sequencer{
		stg:         stg,
		engine:      engine,
		cluster:     cluster,
		polls:       NewPollMap(),
		revealCache: cache,
	}, nil
}

// Start registers the stored polls that belong to the cluster and starts
// the background ballot processor, ticking every period (TickerInterval if
// zero).
func (s *Sequencer) Start(ctx context.Context, period time.Duration) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if period <= 0 {
		period = TickerInterval
	}
	if err := s.loadPolls(); err != nil {
		return fmt.Errorf("failed to load polls: %w", err)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.ballotProcessor(period)
	log.Infow("sequencer started", "polls", s.polls.Len(), "period", period.String())
	return nil
}

// Stop stops the background processor and waits for it to return.
func (s *Sequencer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// loadPolls registers every stored poll created under the cluster keys. Key
// shares only live in memory, so polls created by a previous cluster can no
// longer be tallied and are skipped.
func (s *Sequencer) loadPolls() error {
	ids, err := s.stg.ListPolls()
	if err != nil {
		return err
	}
	for _, id := range ids {
		p, err := s.stg.Poll(id)
		if err != nil {
			return err
		}
		if p.Fingerprint != s.cluster.Fingerprint() {
			log.Warnw("skipping poll sealed under another cluster key",
				"pollID", id.String(),
				"fingerprint", p.Fingerprint.String())
			continue
		}
		pool, err := s.cluster.Pool(id)
		if err != nil {
			return err
		}
		s.polls.Add(id, pool)
	}
	return nil
}

// pool returns the Pool context of a served poll.
func (s *Sequencer) pool(pollID types.PollID) (*mpc.PoolContext, error) {
	if pool, ok := s.polls.Pool(pollID); ok {
		return pool, nil
	}
	if _, err := s.stg.Poll(pollID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrPollInactive, pollID)
	}
	return nil, fmt.Errorf("%w: %s", ErrPollNotFound, pollID)
}
