package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/sequencer"
	"github.com/vocdoni/davinci-tally/storage"
	"github.com/vocdoni/davinci-tally/tally"
)

// StatsMonitorInterval is the interval at which poll statistics are logged.
// This can be overridden before starting the service.
var StatsMonitorInterval = 60 * time.Second

// SequencerService runs the ballot processor of the node.
type SequencerService struct {
	Sequencer *sequencer.Sequencer
	period    time.Duration
	cancel    context.CancelFunc
}

// NewSequencer creates a sequencer that applies queued ballots every period
// with the tally engine of the given cluster.
func NewSequencer(stg *storage.Storage, cluster *mpc.Cluster, period time.Duration) (*SequencerService, error) {
	s, err := sequencer.New(stg, tally.New(cluster), cluster)
	if err != nil {
		return nil, fmt.Errorf("failed to create sequencer: %w", err)
	}
	return &SequencerService{
		Sequencer: s,
		period:    period,
	}, nil
}

// Start begins the ballot processing service.
func (ss *SequencerService) Start(ctx context.Context) error {
	if ss.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if err := ss.Sequencer.Start(ctx, ss.period); err != nil {
		return err
	}
	var monitorCtx context.Context
	monitorCtx, ss.cancel = context.WithCancel(ctx)
	ss.startStatsMonitor(monitorCtx, StatsMonitorInterval)
	return nil
}

// Stop halts the ballot processing service.
func (ss *SequencerService) Stop() {
	if ss.cancel != nil {
		ss.cancel()
		ss.cancel = nil
	}
	ss.Sequencer.Stop()
}

// startStatsMonitor starts a goroutine that periodically logs statistics
// for all served polls.
func (ss *SequencerService) startStatsMonitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		log.Infow("poll stats monitor started", "interval", interval.String())
		for {
			select {
			case <-ctx.Done():
				log.Infow("poll stats monitor stopped")
				return
			case <-ticker.C:
				ss.logPollStats()
			}
		}
	}()
}

func (ss *SequencerService) logPollStats() {
	var totalQueued int
	var totalVotes uint64
	polls := ss.Sequencer.Polls()
	for _, id := range polls {
		status, err := ss.Sequencer.PollStatus(id)
		if err != nil {
			log.Warnw("failed to get poll for stats", "pollID", id.String(), "error", err)
			continue
		}
		totalQueued += status.Queued
		totalVotes += status.Seq
		if status.Queued == 0 {
			continue
		}
		log.Monitor(fmt.Sprintf("poll %s", id.String()), map[string]any{
			"queuedBallots": status.Queued,
			"votes":         status.Seq,
		})
	}
	log.Monitor("global statistics summary", map[string]any{
		"polls":         len(polls),
		"queuedBallots": totalQueued,
		"votes":         totalVotes,
	})
}
