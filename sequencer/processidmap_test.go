package sequencer

import (
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/davinci-tally/types"
)

func TestPollMap(t *testing.T) {
	c := qt.New(t)
	cluster := newTestCluster(c)
	pm := NewPollMap()

	id1, id2, id3 := types.NewPollID(), types.NewPollID(), types.NewPollID()
	pool1, err := cluster.Pool(id1)
	c.Assert(err, qt.IsNil)

	c.Assert(pm.Add(id1, pool1), qt.IsTrue)
	c.Assert(pm.Add(id1, pool1), qt.IsFalse, qt.Commentf("adding twice"))
	c.Assert(pm.Add(types.PollID{}, pool1), qt.IsFalse)
	c.Assert(pm.Add(id2, nil), qt.IsFalse)
	c.Assert(pm.Exists(id1), qt.IsTrue)
	c.Assert(pm.Exists(id2), qt.IsFalse)

	pool, ok := pm.Pool(id1)
	c.Assert(ok, qt.IsTrue)
	c.Assert(pool.Domain(), qt.Equals, pool1.Domain())

	for _, id := range []types.PollID{id2, id3} {
		pool, err := cluster.Pool(id)
		c.Assert(err, qt.IsNil)
		c.Assert(pm.Add(id, pool), qt.IsTrue)
	}
	c.Assert(pm.Len(), qt.Equals, 3)
	c.Assert(pm.List(), qt.HasLen, 3)

	count := 0
	pm.ForEach(func(types.PollID, time.Time) bool {
		count++
		return count < 2
	})
	c.Assert(count, qt.Equals, 2)

	_, ok = pm.LastVote(id1)
	c.Assert(ok, qt.IsFalse)
	pm.TouchVote(id1)
	_, ok = pm.LastVote(id1)
	c.Assert(ok, qt.IsTrue)

	c.Assert(pm.Remove(id1), qt.IsTrue)
	c.Assert(pm.Remove(id1), qt.IsFalse)
	c.Assert(pm.Exists(id1), qt.IsFalse)
	_, ok = pm.Lock(id1)
	c.Assert(ok, qt.IsFalse)
}

func TestPollMapLock(t *testing.T) {
	c := qt.New(t)
	cluster := newTestCluster(c)
	pm := NewPollMap()
	id := types.NewPollID()
	pool, err := cluster.Pool(id)
	c.Assert(err, qt.IsNil)
	pm.Add(id, pool)

	// the lock is exclusive: a shared counter incremented under it never
	// loses an update
	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, ok := pm.Lock(id)
			if !ok {
				t.Error("poll not registered")
				return
			}
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()
	c.Assert(counter, qt.Equals, 50)
}
