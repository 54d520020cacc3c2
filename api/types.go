package api

import (
	"time"

	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/sequencer"
	"github.com/vocdoni/davinci-tally/types"
)

// NewPollRequest is the body of a poll creation request.
type NewPollRequest struct {
	Question string `json:"question"`
}

// NewPollResponse returns the ID of a new poll together with the keys voters
// must seal their ballots with. AuthorityToken is only returned here and is
// required to read the result of the poll.
type NewPollResponse struct {
	PollID         types.PollID   `json:"pollId"`
	Keys           mpc.PoolKeys   `json:"keys"`
	AuthorityToken types.HexBytes `json:"authorityToken"`
}

// PollResponse is the public state of a poll.
type PollResponse struct {
	PollID      types.PollID    `json:"pollId"`
	Question    string          `json:"question"`
	CreatedAt   time.Time       `json:"createdAt"`
	Fingerprint mpc.Fingerprint `json:"fingerprint"`
	Seq         uint64          `json:"seq"`
	Queued      int             `json:"queued"`
	Active      bool            `json:"active"`
}

// PollListResponse lists the polls served by the node.
type PollListResponse struct {
	Polls []types.PollID `json:"polls"`
}

// BallotRequest carries a sealed ballot in its canonical encoding.
type BallotRequest struct {
	Ballot types.HexBytes `json:"ballot"`
}

// BallotResponse returns the ID a submitted ballot is tracked with.
type BallotResponse struct {
	BallotID types.HexBytes `json:"ballotId"`
}

// BallotStatusResponse is the processing state of a ballot.
type BallotStatusResponse struct {
	BallotID types.HexBytes         `json:"ballotId"`
	Status   sequencer.BallotStatus `json:"status"`
}

// ResultResponse is the declassified outcome of a poll. YesWins is false on
// ties.
type ResultResponse struct {
	PollID  types.PollID `json:"pollId"`
	Seq     uint64       `json:"seq"`
	YesWins bool         `json:"yesWins"`
}
