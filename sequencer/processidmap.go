package sequencer

import (
	"sync"
	"time"

	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/types"
)

type pollEntry struct {
	pool     *mpc.PoolContext
	addedAt  time.Time
	lastVote time.Time
	// writer serializes the tally updates of the poll.
	writer sync.Mutex
}

// PollMap is a thread-safe registry of the polls the sequencer serves. Each
// poll carries its Pool context and a single-writer lock for its tally.
type PollMap struct {
	data map[types.PollID]*pollEntry
	mu   sync.RWMutex
}

// NewPollMap creates a new empty PollMap.
func NewPollMap() *PollMap {
	return &PollMap{data: make(map[types.PollID]*pollEntry)}
}

// Add registers a poll. Returns false if the poll ID is invalid or already
// registered.
func (p *PollMap) Add(pollID types.PollID, pool *mpc.PoolContext) bool {
	if !pollID.IsValid() || !pool.Valid() {
		log.Warnw("attempted to add invalid poll", "pollID", pollID.String())
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.data[pollID]; exists {
		return false
	}
	p.data[pollID] = &pollEntry{pool: pool, addedAt: time.Now()}
	return true
}

// Remove unregisters a poll. Returns false if it was not registered.
func (p *PollMap) Remove(pollID types.PollID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.data[pollID]; !exists {
		return false
	}
	delete(p.data, pollID)
	return true
}

// Exists checks if a poll is registered.
func (p *PollMap) Exists(pollID types.PollID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.data[pollID]
	return exists
}

// Pool returns the Pool context of a registered poll.
func (p *PollMap) Pool(pollID types.PollID) (*mpc.PoolContext, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.data[pollID]
	if !ok {
		return nil, false
	}
	return e.pool, true
}

// Lock acquires the single-writer lock of a poll and returns its release
// function. ok is false if the poll is not registered.
func (p *PollMap) Lock(pollID types.PollID) (unlock func(), ok bool) {
	p.mu.RLock()
	e, exists := p.data[pollID]
	p.mu.RUnlock()
	if !exists {
		return nil, false
	}
	e.writer.Lock()
	return e.writer.Unlock, true
}

// TouchVote records the time of the last vote applied to a poll.
func (p *PollMap) TouchVote(pollID types.PollID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.data[pollID]; ok {
		e.lastVote = time.Now()
	}
}

// LastVote returns the time of the last vote applied to a poll.
func (p *PollMap) LastVote(pollID types.PollID) (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.data[pollID]
	if !ok || e.lastVote.IsZero() {
		return time.Time{}, false
	}
	return e.lastVote, true
}

// ForEach executes f for each registered poll until it returns false. The
// callbacks run on a snapshot, without holding the map lock.
func (p *PollMap) ForEach(f func(pollID types.PollID, addedAt time.Time) bool) {
	type item struct {
		id      types.PollID
		addedAt time.Time
	}
	p.mu.RLock()
	items := make([]item, 0, len(p.data))
	for id, e := range p.data {
		items = append(items, item{id: id, addedAt: e.addedAt})
	}
	p.mu.RUnlock()
	for _, it := range items {
		if !f(it.id, it.addedAt) {
			break
		}
	}
}

// List returns the registered poll IDs.
func (p *PollMap) List() []types.PollID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	result := make([]types.PollID, 0, len(p.data))
	for id := range p.data {
		result = append(result, id)
	}
	return result
}

// Len returns the number of registered polls.
func (p *PollMap) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.data)
}
