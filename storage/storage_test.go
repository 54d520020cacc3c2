package storage

import (
	"bytes"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/db/metadb"
	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/types"
)

func newTestStorage(t *testing.T) *Storage {
	return New(metadb.ForTest(t))
}

func newTestPoll(c *qt.C, st *Storage) types.PollID {
	p := &Poll{
		ID:          types.NewPollID(),
		Question:    "Should we?",
		CreatedAt:   time.Now(),
		Fingerprint: mpc.Fingerprint{1},
	}
	c.Assert(st.CreatePoll(p, []byte{0}), qt.IsNil)
	return p.ID
}

func ballotID(b byte) types.HexBytes {
	return bytes.Repeat([]byte{b}, 32)
}

func TestPolls(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	ids, err := st.ListPolls()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.HasLen, 0)

	createdAt := time.Now()
	p := &Poll{
		ID:            types.NewPollID(),
		Question:      "Q?",
		CreatedAt:     createdAt,
		Fingerprint:   mpc.Fingerprint{7},
		AuthorityHash: ballotID(5),
	}
	c.Assert(st.CreatePoll(p, []byte{0}), qt.IsNil)
	c.Assert(st.CreatePoll(p, []byte{0}), qt.ErrorIs, ErrAlreadyExists)
	c.Assert(st.CreatePoll(&Poll{}, []byte{0}), qt.IsNotNil)
	c.Assert(st.CreatePoll(&Poll{ID: types.NewPollID()}, nil), qt.ErrorMatches, "empty initial tally")

	for range 2 { // second read is served from the cache
		got, err := st.Poll(p.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(got.ID, qt.Equals, p.ID)
		c.Assert(got.Question, qt.Equals, "Q?")
		c.Assert(got.Fingerprint, qt.Equals, mpc.Fingerprint{7})
		c.Assert(got.CreatedAt.Equal(createdAt), qt.IsTrue)
		c.Assert(got.AuthorityHash, qt.DeepEquals, ballotID(5))
		got.Question = "modified"
	}

	_, err = st.Poll(types.NewPollID())
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	other := newTestPoll(c, st)
	ids, err = st.ListPolls()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.HasLen, 2)
	c.Assert(ids, qt.Contains, p.ID)
	c.Assert(ids, qt.Contains, other)
}

func TestCreatePollWritesBothRecords(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	pollID := newTestPoll(c, st)
	_, err := st.Poll(pollID)
	c.Assert(err, qt.IsNil)
	r, err := st.Tally(pollID)
	c.Assert(err, qt.IsNil)
	c.Assert(r.PollID, qt.Equals, pollID)
	c.Assert(r.Seq, qt.Equals, uint64(0))

	// a leftover tally without its poll makes the creation fail as a whole
	orphan := types.NewPollID()
	c.Assert(st.setArtifact(tallyPrefix, orphan.Bytes(), &TallyRecord{PollID: orphan, Tally: []byte{9}}), qt.IsNil)
	err = st.CreatePoll(&Poll{ID: orphan, Question: "Q?"}, []byte{0})
	c.Assert(err, qt.ErrorIs, ErrAlreadyExists)
	_, err = st.Poll(orphan)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	ids, err := st.ListPolls()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []types.PollID{pollID})
	r, err = st.Tally(orphan)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Tally, qt.DeepEquals, types.HexBytes{9})
}

func TestCommitVote(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	c.Assert(st.CommitVote(types.NewPollID(), ballotID(1), 0, []byte{1}), qt.ErrorIs, ErrNotFound)
	pollID := newTestPoll(c, st)

	r, err := st.Tally(pollID)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Seq, qt.Equals, uint64(0))
	c.Assert(r.Tally, qt.DeepEquals, types.HexBytes{0})

	c.Assert(st.CommitVote(pollID, ballotID(1), 0, []byte{1}), qt.IsNil)
	r, err = st.Tally(pollID)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Seq, qt.Equals, uint64(1))
	c.Assert(r.Tally, qt.DeepEquals, types.HexBytes{1})

	// a second vote computed from the same prior tally is rejected
	c.Assert(st.CommitVote(pollID, ballotID(2), 0, []byte{2}), qt.ErrorIs, ErrStaleTally)
	// replaying an applied ballot is rejected
	c.Assert(st.CommitVote(pollID, ballotID(1), 1, []byte{3}), qt.ErrorIs, ErrBallotConsumed)

	consumed, err := st.IsBallotConsumed(pollID, ballotID(1))
	c.Assert(err, qt.IsNil)
	c.Assert(consumed, qt.IsTrue)
	consumed, err = st.IsBallotConsumed(pollID, ballotID(2))
	c.Assert(err, qt.IsNil)
	c.Assert(consumed, qt.IsFalse)

	c.Assert(st.CommitVote(pollID, ballotID(2), 1, []byte{2}), qt.IsNil)
	r, err = st.Tally(pollID)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Seq, qt.Equals, uint64(2))
	c.Assert(r.Tally, qt.DeepEquals, types.HexBytes{2})

	// records handed out are copies of the cached one
	r.Tally[0] = 0xff
	r, err = st.Tally(pollID)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Tally, qt.DeepEquals, types.HexBytes{2})
}

func TestBallotQueue(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)
	pollID := newTestPoll(c, st)
	otherPoll := newTestPoll(c, st)

	queued, err := st.QueuedBallots(pollID, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(queued, qt.HasLen, 0)

	c.Assert(st.PushBallot(&QueuedBallot{PollID: types.NewPollID(), BallotID: ballotID(9)}), qt.ErrorIs, ErrNotFound)
	c.Assert(st.PushBallot(&QueuedBallot{PollID: pollID}), qt.IsNotNil)

	now := time.Now()
	// pushed out of order on purpose
	for i, id := range []byte{3, 1, 2} {
		c.Assert(st.PushBallot(&QueuedBallot{
			PollID:     pollID,
			BallotID:   ballotID(id),
			Ballot:     []byte{id},
			ReceivedAt: now.Add(time.Duration(i) * time.Millisecond),
		}), qt.IsNil)
	}
	c.Assert(st.PushBallot(&QueuedBallot{PollID: otherPoll, BallotID: ballotID(1), ReceivedAt: now}), qt.IsNil)
	c.Assert(st.PushBallot(&QueuedBallot{PollID: pollID, BallotID: ballotID(1)}), qt.ErrorIs, ErrBallotQueued)

	queued, err = st.QueuedBallots(pollID, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(queued, qt.HasLen, 3)
	c.Assert(queued[0].BallotID, qt.DeepEquals, ballotID(3))
	c.Assert(queued[1].BallotID, qt.DeepEquals, ballotID(1))
	c.Assert(queued[2].BallotID, qt.DeepEquals, ballotID(2))

	queued, err = st.QueuedBallots(pollID, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(queued, qt.HasLen, 2)

	counts, err := st.CountQueuedBallots()
	c.Assert(err, qt.IsNil)
	c.Assert(counts[pollID], qt.Equals, 3)
	c.Assert(counts[otherPoll], qt.Equals, 1)
	polls, err := st.PollsWithQueuedBallots()
	c.Assert(err, qt.IsNil)
	c.Assert(polls, qt.HasLen, 2)

	// applying a ballot removes it from the queue
	c.Assert(st.CommitVote(pollID, ballotID(3), 0, []byte{1}), qt.IsNil)
	isQueued, err := st.IsBallotQueued(pollID, ballotID(3))
	c.Assert(err, qt.IsNil)
	c.Assert(isQueued, qt.IsFalse)
	c.Assert(st.PushBallot(&QueuedBallot{PollID: pollID, BallotID: ballotID(3)}), qt.ErrorIs, ErrBallotConsumed)

	c.Assert(st.RemoveQueuedBallot(pollID, ballotID(1)), qt.IsNil)
	queued, err = st.QueuedBallots(pollID, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(queued, qt.HasLen, 1)
	c.Assert(queued[0].BallotID, qt.DeepEquals, ballotID(2))

	// the other poll is untouched
	queued, err = st.QueuedBallots(otherPoll, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(queued, qt.HasLen, 1)
}

func TestCommitVoteBackends(t *testing.T) {
	for _, typ := range []string{db.TypeInMem, db.TypeLevelDB} {
		t.Run(typ, func(t *testing.T) {
			c := qt.New(t)
			database, err := metadb.New(typ, t.TempDir())
			c.Assert(err, qt.IsNil)
			st := New(database)
			defer st.Close()

			pollID := newTestPoll(c, st)
			c.Assert(st.CommitVote(pollID, ballotID(1), 0, []byte{1}), qt.IsNil)
			c.Assert(st.CommitVote(pollID, ballotID(2), 0, []byte{2}), qt.ErrorIs, ErrStaleTally)
			r, err := st.Tally(pollID)
			c.Assert(err, qt.IsNil)
			c.Assert(r.Seq, qt.Equals, uint64(1))
		})
	}
}
