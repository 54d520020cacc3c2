package storage

import (
	"time"

	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/types"
)

// Poll is the metadata of a poll. AuthorityHash is the Keccak-256 hash of
// the token that authorizes reveals of the poll.
type Poll struct {
	ID            types.PollID    `json:"id" cbor:"0,keyasint"`
	Question      string          `json:"question" cbor:"1,keyasint"`
	CreatedAt     time.Time       `json:"createdAt" cbor:"2,keyasint"`
	Fingerprint   mpc.Fingerprint `json:"fingerprint" cbor:"3,keyasint"`
	AuthorityHash types.HexBytes  `json:"-" cbor:"4,keyasint,omitempty"`
}

// TallyRecord is the current sealed tally of a poll. Seq is the number of
// votes applied to it.
type TallyRecord struct {
	PollID types.PollID   `json:"pollId" cbor:"0,keyasint"`
	Seq    uint64         `json:"seq" cbor:"1,keyasint"`
	Tally  types.HexBytes `json:"tally" cbor:"2,keyasint"`
}

// QueuedBallot is a sealed ballot waiting to be applied to its poll.
type QueuedBallot struct {
	PollID     types.PollID   `json:"pollId" cbor:"0,keyasint"`
	BallotID   types.HexBytes `json:"ballotId" cbor:"1,keyasint"`
	Ballot     types.HexBytes `json:"ballot" cbor:"2,keyasint"`
	ReceivedAt time.Time      `json:"receivedAt" cbor:"3,keyasint"`
}
