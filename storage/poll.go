package storage

import (
	"fmt"

	"github.com/vocdoni/davinci-tally/db/prefixeddb"
	"github.com/vocdoni/davinci-tally/types"
)

// CreatePoll stores a new poll together with its initial tally at sequence 0
// in a single transaction. Either both records are written or none is. It
// returns ErrAlreadyExists if the poll or its tally is already stored.
func (s *Storage) CreatePoll(p *Poll, tally types.HexBytes) error {
	if p == nil || !p.ID.IsValid() {
		return fmt.Errorf("invalid poll")
	}
	if len(tally) == 0 {
		return fmt.Errorf("empty initial tally")
	}
	pollData, err := EncodeArtifact(p)
	if err != nil {
		return err
	}
	tallyData, err := EncodeArtifact(&TallyRecord{PollID: p.ID, Tally: tally})
	if err != nil {
		return err
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	polls := prefixeddb.NewPrefixedWriteTx(wTx, pollPrefix)
	tallies := prefixeddb.NewPrefixedWriteTx(wTx, tallyPrefix)

	for _, r := range []*prefixeddb.PrefixedWriteTx{polls, tallies} {
		if ok, err := exists(r, p.ID.Bytes()); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("poll %s: %w", p.ID, ErrAlreadyExists)
		}
	}
	if err := polls.Set(p.ID.Bytes(), pollData); err != nil {
		return err
	}
	if err := tallies.Set(p.ID.Bytes(), tallyData); err != nil {
		return err
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit poll %s: %w", p.ID, err)
	}
	s.cache.Remove(cacheKey(pollPrefix, p.ID.Bytes()))
	s.cache.Remove(cacheKey(tallyPrefix, p.ID.Bytes()))
	return nil
}

// Poll returns the poll with the given ID or ErrNotFound.
func (s *Storage) Poll(pollID types.PollID) (*Poll, error) {
	key := cacheKey(pollPrefix, pollID.Bytes())
	if cached, ok := s.cache.Get(key); ok {
		if p, ok := cached.(*Poll); ok {
			cp := *p
			return &cp, nil
		}
	}
	p := &Poll{}
	if err := s.getArtifact(pollPrefix, pollID.Bytes(), p); err != nil {
		return nil, err
	}
	cp := *p
	s.cache.Add(key, &cp)
	return p, nil
}

// ListPolls returns the IDs of every stored poll.
func (s *Storage) ListPolls() ([]types.PollID, error) {
	keys, err := s.listArtifacts(pollPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]types.PollID, 0, len(keys))
	for _, k := range keys {
		id, err := types.PollIDFromBytes(k)
		if err != nil {
			return nil, fmt.Errorf("corrupted poll key %x: %w", k, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
