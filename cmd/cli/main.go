// Command cli runs a poll against a davinci-tally node: it creates the poll,
// casts the requested yes and no ballots, waits until they are counted and
// prints the revealed outcome.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/davinci-tally/api/client"
	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/sequencer"
	"github.com/vocdoni/davinci-tally/types"
)

const defaultEndpoint = "http://127.0.0.1:9090"

var (
	endpoint     = flag.StringP("endpoint", "e", defaultEndpoint, "davinci-tally node endpoint")
	question     = flag.StringP("question", "q", "Should we ship it?", "poll question")
	pollIDFlag   = flag.String("poll", "", "existing poll ID to vote on (a new poll is created if empty)")
	tokenFlag    = flag.StringP("token", "t", "", "authority token of the existing poll, needed to reveal its result")
	yesVotes     = flag.IntP("yes", "y", 3, "number of yes ballots to cast")
	noVotes      = flag.IntP("no", "n", 2, "number of no ballots to cast")
	pollInterval = flag.Duration("interval", time.Second, "interval between ballot status checks")
	timeout      = flag.Duration("timeout", 5*time.Minute, "timeout for the whole run")
	logLevel     = flag.StringP("log.level", "l", "info", "log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cli, err := client.New(*endpoint)
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}
	if err := waitForNode(ctx, cli); err != nil {
		log.Fatalf("node not reachable: %v", err)
	}

	keys, token, err := pollKeys(cli)
	if err != nil {
		log.Fatalf("failed to get poll keys: %v", err)
	}
	log.Infow("poll ready", "pollID", keys.PollID.String(), "fingerprint", keys.Fingerprint.String())
	if *pollIDFlag == "" {
		fmt.Printf("poll %s created, authority token %s\n", keys.PollID, token)
	}

	choices := make([]bool, 0, *yesVotes+*noVotes)
	for range *yesVotes {
		choices = append(choices, true)
	}
	for range *noVotes {
		choices = append(choices, false)
	}
	rand.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })

	ballotIDs := make([]types.HexBytes, 0, len(choices))
	for _, choice := range choices {
		id, err := cli.Vote(keys, choice)
		if err != nil {
			log.Fatalf("failed to submit ballot: %v", err)
		}
		log.Debugw("ballot submitted", "ballotID", id.String())
		ballotIDs = append(ballotIDs, id)
	}
	log.Infow("ballots submitted", "count", len(ballotIDs))

	if err := waitForBallots(ctx, cli, keys.PollID, ballotIDs); err != nil {
		log.Fatalf("ballots not counted: %v", err)
	}
	if len(token) == 0 {
		fmt.Printf("%d ballots counted, pass --token to reveal the result\n", len(ballotIDs))
		return
	}
	res, err := cli.Result(keys.PollID, token)
	if err != nil {
		log.Fatalf("failed to reveal result: %v", err)
	}
	log.Infow("poll result", "pollID", res.PollID.String(), "votes", res.Seq, "yesWins", res.YesWins)
	fmt.Printf("yes wins: %t (%d votes counted)\n", res.YesWins, res.Seq)
}

func pollKeys(cli *client.HTTPclient) (*mpc.PoolKeys, types.HexBytes, error) {
	if *pollIDFlag == "" {
		return cli.NewPoll(*question)
	}
	pollID, err := types.ParsePollID(*pollIDFlag)
	if err != nil {
		return nil, nil, err
	}
	var token types.HexBytes
	if *tokenFlag != "" {
		if token, err = types.HexStringToHexBytes(*tokenFlag); err != nil {
			return nil, nil, fmt.Errorf("invalid authority token: %w", err)
		}
	}
	keys, err := cli.Keys(pollID)
	return keys, token, err
}

func waitForNode(ctx context.Context, cli *client.HTTPclient) error {
	for {
		err := cli.Ping()
		if err == nil {
			return nil
		}
		log.Warnw("failed to ping node", "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached while connecting to node")
		case <-time.After(*pollInterval):
		}
	}
}

func waitForBallots(ctx context.Context, cli *client.HTTPclient, pollID types.PollID, ballotIDs []types.HexBytes) error {
	pending := ballotIDs
	for len(pending) > 0 {
		next := pending[:0]
		for _, id := range pending {
			status, err := cli.BallotStatus(pollID, id)
			if err != nil {
				return err
			}
			if status != sequencer.BallotStatusApplied {
				next = append(next, id)
			}
		}
		pending = next
		if len(pending) == 0 {
			break
		}
		log.Infow("waiting for ballots", "pending", len(pending))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d ballots still pending: %w", len(pending), ctx.Err())
		case <-time.After(*pollInterval):
		}
	}
	return nil
}
