package service

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/davinci-tally/db/metadb"
	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/storage"
	"github.com/vocdoni/davinci-tally/tally"
)

func newTestSequencerService(c *qt.C) *SequencerService {
	cluster, err := mpc.NewCluster(mpc.ClusterConfig{Nodes: 3, Threshold: 2, RevealWindow: 16})
	c.Assert(err, qt.IsNil)
	seqService, err := NewSequencer(storage.New(metadb.ForTest(c)), cluster, 20*time.Millisecond)
	c.Assert(err, qt.IsNil)
	return seqService
}

func TestSequencerService(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seqService := newTestSequencerService(c)
	c.Assert(seqService.Start(ctx), qt.IsNil)
	defer seqService.Stop()

	// Test that starting an already running service returns an error
	c.Assert(seqService.Start(ctx), qt.ErrorMatches, "service already running")

	// Test stopping and restarting the service
	seqService.Stop()
	c.Assert(seqService.Start(ctx), qt.IsNil)

	seq := seqService.Sequencer
	p, token, err := seq.NewPoll(ctx, "Q?")
	c.Assert(err, qt.IsNil)
	keys, err := seq.Keys(p.ID)
	c.Assert(err, qt.IsNil)
	b, err := tally.SealBallot(keys, tally.Ballot{Choice: true})
	c.Assert(err, qt.IsNil)
	data, err := b.Bytes()
	c.Assert(err, qt.IsNil)
	_, err = seq.SubmitBallot(p.ID, data)
	c.Assert(err, qt.IsNil)

	// the background processor applies the ballot
	c.Assert(waitFor(ctx, func() bool {
		status, err := seq.PollStatus(p.ID)
		return err == nil && status.Seq == 1
	}), qt.IsTrue)
	res, err := seq.Reveal(ctx, p.ID, token)
	c.Assert(err, qt.IsNil)
	c.Assert(res.YesWins, qt.IsTrue)

	seqService.logPollStats()
}

func TestAPIService(t *testing.T) {
	c := qt.New(t)
	seqService := newTestSequencerService(c)

	apiService := NewAPI(seqService.Sequencer, "127.0.0.1", 0, true)
	host, port := apiService.HostPort()
	c.Assert(host, qt.Equals, "127.0.0.1")
	c.Assert(port, qt.Equals, 0)

	c.Assert(apiService.Start(context.Background()), qt.IsNil)
	c.Assert(apiService.API, qt.IsNotNil)
	c.Assert(apiService.Start(context.Background()), qt.ErrorMatches, "service already running")
	apiService.Stop()
	c.Assert(apiService.API, qt.IsNil)
	// stopping twice is a no-op
	apiService.Stop()
}

func waitFor(ctx context.Context, cond func() bool) bool {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
