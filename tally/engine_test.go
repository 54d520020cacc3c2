package tally

import (
	"context"
	"reflect"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/types"
)

type testPoll struct {
	cluster *mpc.Cluster
	engine  *Engine
	pool    *mpc.PoolContext
}

func newTestPoll(c *qt.C) *testPoll {
	cluster, err := mpc.NewCluster(mpc.ClusterConfig{Nodes: 3, Threshold: 2, RevealWindow: 64})
	c.Assert(err, qt.IsNil)
	return newTestPollOn(c, cluster)
}

func newTestPollOn(c *qt.C, cluster *mpc.Cluster) *testPoll {
	pool, err := cluster.Pool(types.NewPollID())
	c.Assert(err, qt.IsNil)
	return &testPoll{cluster: cluster, engine: New(cluster), pool: pool}
}

func (p *testPoll) ballot(c *qt.C, choice bool) SealedBallot {
	b, err := SealBallot(p.pool.Keys(), Ballot{Choice: choice})
	c.Assert(err, qt.IsNil)
	return b
}

func (p *testPoll) init(c *qt.C) Tally {
	t, err := p.engine.Initialize(context.Background(), p.pool)
	c.Assert(err, qt.IsNil)
	return t
}

// apply applies the choices sequentially, each on the tally returned by the
// previous call.
func (p *testPoll) apply(c *qt.C, t Tally, choices ...bool) Tally {
	for _, choice := range choices {
		var err error
		t, err = p.engine.ApplyVote(context.Background(), p.ballot(c, choice), t)
		c.Assert(err, qt.IsNil)
	}
	return t
}

func (p *testPoll) reveal(c *qt.C, t Tally) bool {
	result, err := p.engine.Reveal(context.Background(), t)
	c.Assert(err, qt.IsNil)
	return result
}

func TestReveal(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)

	for _, tc := range []struct {
		name    string
		choices []bool
		want    bool
	}{
		{"empty tally", nil, false},
		{"single yes", []bool{true}, true},
		{"single no", []bool{false}, false},
		{"tie is no", []bool{true, false}, false},
		{"majority yes", []bool{true, true, false}, true},
		{"majority no", []bool{false, true, false}, false},
	} {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(p.reveal(c, p.apply(c, p.init(c), tc.choices...)), qt.Equals, tc.want)
		})
	}
}

func TestInitialize(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)

	t1 := p.init(c)
	t2 := p.init(c)
	c.Assert(t1.Domain(), qt.Equals, p.pool.Domain())
	c.Assert(t2.Domain(), qt.Equals, t1.Domain())
	c.Assert(t1.Equal(t2), qt.IsFalse)
	c.Assert(t1.Envelope().Payload, qt.HasLen, len(t2.Envelope().Payload))

	_, err := p.engine.Initialize(context.Background(), nil)
	c.Assert(err, qt.ErrorIs, ErrContext)
	_, err = p.engine.Initialize(context.Background(), &mpc.PoolContext{})
	c.Assert(err, qt.ErrorIs, ErrContext)

	// a pool minted by another cluster is not a capability of this engine
	other := newTestPoll(c)
	_, err = p.engine.Initialize(context.Background(), other.pool)
	c.Assert(err, qt.ErrorIs, ErrContext)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.engine.Initialize(ctx, p.pool)
	c.Assert(err, qt.ErrorIs, context.Canceled)
}

func TestApplyVoteCarriesOwner(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)

	t0 := p.init(c)
	t1 := p.apply(c, t0, true)
	c.Assert(t1.Domain(), qt.Equals, t0.Domain())
	c.Assert(t1.Equal(t0), qt.IsFalse)

	// the input is not modified and can still be revealed
	c.Assert(p.reveal(c, t0), qt.IsFalse)
	c.Assert(p.reveal(c, t1), qt.IsTrue)
}

func TestIdempotentReveal(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)

	tally := p.apply(c, p.init(c), true, false, true)
	first := p.reveal(c, tally)
	second := p.reveal(c, tally)
	c.Assert(first, qt.IsTrue)
	c.Assert(second, qt.Equals, first)

	// revealing does not end the poll
	tally = p.apply(c, tally, false, false)
	c.Assert(p.reveal(c, tally), qt.IsFalse)
}

func TestOrderIndependence(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)

	orders := [][]bool{
		{true, true, false, false, true},
		{false, false, true, true, true},
		{true, false, true, false, true},
		{false, true, true, true, false},
	}
	for _, order := range orders {
		c.Assert(p.reveal(c, p.apply(c, p.init(c), order...)), qt.IsTrue, qt.Commentf("order %v", order))
	}

	// the same ballots applied in different orders
	ballots := []SealedBallot{p.ballot(c, false), p.ballot(c, true), p.ballot(c, false)}
	for _, perm := range [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}} {
		tally := p.init(c)
		for _, i := range perm {
			var err error
			tally, err = p.engine.ApplyVote(context.Background(), ballots[i], tally)
			c.Assert(err, qt.IsNil)
		}
		c.Assert(p.reveal(c, tally), qt.IsFalse)
	}
}

func TestDomainRejection(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)
	tally := p.init(c)

	// ballot sealed for an unrelated pool
	unrelated := newTestPoll(c)
	_, err := p.engine.ApplyVote(context.Background(), unrelated.ballot(c, true), tally)
	c.Assert(err, qt.ErrorIs, ErrDomainMismatch)

	// ballot for another poll of the same cluster
	sibling := newTestPollOn(c, p.cluster)
	_, err = p.engine.ApplyVote(context.Background(), sibling.ballot(c, true), tally)
	c.Assert(err, qt.ErrorIs, ErrDomainMismatch)

	// tally owned by a cluster the engine does not know about
	foreignTally := unrelated.init(c)
	_, err = p.engine.ApplyVote(context.Background(), unrelated.ballot(c, true), foreignTally)
	c.Assert(err, qt.ErrorIs, ErrContext)
	_, err = p.engine.Reveal(context.Background(), foreignTally)
	c.Assert(err, qt.ErrorIs, ErrContext)

	// zero values
	_, err = p.engine.ApplyVote(context.Background(), SealedBallot{}, tally)
	c.Assert(err, qt.ErrorIs, ErrMalformedCiphertext)
	_, err = p.engine.ApplyVote(context.Background(), p.ballot(c, true), Tally{})
	c.Assert(err, qt.ErrorIs, ErrMalformedCiphertext)
	_, err = p.engine.Reveal(context.Background(), Tally{})
	c.Assert(err, qt.ErrorIs, ErrMalformedCiphertext)
}

func TestMalformedCiphertexts(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)
	tally := p.init(c)

	env := tally.Envelope()
	env.Payload = env.Payload[:len(env.Payload)-1]
	truncated, err := TallyFromEnvelope(env)
	c.Assert(err, qt.IsNil)
	_, err = p.engine.Reveal(context.Background(), truncated)
	c.Assert(err, qt.ErrorIs, ErrMalformedCiphertext)
	_, err = p.engine.ApplyVote(context.Background(), p.ballot(c, true), truncated)
	c.Assert(err, qt.ErrorIs, ErrMalformedCiphertext)

	benv := p.ballot(c, true).Envelope()
	benv.Payload[0] ^= 1
	tampered, err := BallotFromEnvelope(benv)
	c.Assert(err, qt.IsNil)
	_, err = p.engine.ApplyVote(context.Background(), tampered, tally)
	c.Assert(err, qt.ErrorIs, ErrMalformedCiphertext)
}

func TestCiphertextConstructors(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)
	tally := p.init(c)
	ballot := p.ballot(c, true)

	tallyBytes, err := tally.Bytes()
	c.Assert(err, qt.IsNil)
	ballotBytes, err := ballot.Bytes()
	c.Assert(err, qt.IsNil)

	decodedTally, err := TallyFromBytes(tallyBytes)
	c.Assert(err, qt.IsNil)
	c.Assert(decodedTally.Equal(tally), qt.IsTrue)
	decodedBallot, err := BallotFromBytes(ballotBytes)
	c.Assert(err, qt.IsNil)
	c.Assert(decodedBallot.Equal(ballot), qt.IsTrue)

	// bytes claiming the other domain kind are rejected
	_, err = TallyFromBytes(ballotBytes)
	c.Assert(err, qt.ErrorIs, ErrDomainMismatch)
	_, err = BallotFromBytes(tallyBytes)
	c.Assert(err, qt.ErrorIs, ErrDomainMismatch)
	_, err = TallyFromEnvelope(ballot.Envelope())
	c.Assert(err, qt.ErrorIs, ErrDomainMismatch)
	_, err = BallotFromEnvelope(nil)
	c.Assert(err, qt.ErrorIs, ErrMalformedCiphertext)
	_, err = TallyFromBytes([]byte{0xff})
	c.Assert(err, qt.ErrorIs, ErrMalformedCiphertext)

	// envelopes handed out are copies
	env := tally.Envelope()
	env.Payload[0] ^= 1
	c.Assert(tally.Equal(decodedTally), qt.IsTrue)

	_, err = Tally{}.Bytes()
	c.Assert(err, qt.ErrorIs, ErrMalformedCiphertext)
	c.Assert(Tally{}.Domain(), qt.Equals, mpc.Domain{})
	c.Assert(Tally{}.Envelope(), qt.IsNil)
}

func TestCiphertextHasNoPlaintextAccessor(t *testing.T) {
	c := qt.New(t)

	for _, typ := range []reflect.Type{reflect.TypeOf(Tally{}), reflect.TypeOf(SealedBallot{})} {
		for i := range typ.NumField() {
			c.Assert(typ.Field(i).IsExported(), qt.IsFalse, qt.Commentf("%s.%s", typ, typ.Field(i).Name))
		}
		for i := range typ.NumMethod() {
			m := typ.Method(i)
			for j := range m.Type.NumOut() {
				out := m.Type.Out(j)
				c.Assert(out, qt.Not(qt.Equals), reflect.TypeOf(TallyState{}), qt.Commentf("%s.%s", typ, m.Name))
				c.Assert(out, qt.Not(qt.Equals), reflect.TypeOf(Ballot{}), qt.Commentf("%s.%s", typ, m.Name))
			}
		}
	}
}

// TestConcurrentApplyVoteLosesUpdates shows why ApplyVote must be serialized
// per poll: votes applied concurrently to the same prior tally each produce
// a valid tally, but whichever is kept only counts one of them.
func TestConcurrentApplyVoteLosesUpdates(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)

	// two no votes, then three concurrent yes votes
	prior := p.apply(c, p.init(c), false, false)
	const concurrent = 3
	ballots := make([]SealedBallot, concurrent)
	for i := range ballots {
		ballots[i] = p.ballot(c, true)
	}

	results := make([]Tally, concurrent)
	errs := make([]error, concurrent)
	var wg sync.WaitGroup
	for i := range concurrent {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.engine.ApplyVote(context.Background(), ballots[i], prior)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		c.Assert(err, qt.IsNil)
	}

	// every result reflects only its own vote: yes=1, no=2
	for _, result := range results {
		c.Assert(p.reveal(c, result), qt.IsFalse)
	}

	// serialized, the same ballots make yes win 3 to 2
	serial := prior
	for _, b := range ballots {
		var err error
		serial, err = p.engine.ApplyVote(context.Background(), b, serial)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(p.reveal(c, serial), qt.IsTrue)
}
