// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/danielhkuo/quickly-elect/models"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store for unit tests. Transactions hold the
// write lock for their whole duration and stage their writes, which are
// applied only on commit.
type MemStore struct {
	mu            sync.RWMutex
	elections     map[string]models.Election
	offices       map[string]models.Office
	officeOrder   []string
	candidates    map[string]models.Candidate
	voters        map[string]models.Voter
	grants        []models.PowerGrant
	participation map[models.ParticipationKey]models.ParticipationRecord
	tally         []models.TallyEntry
}

func NewMemStore() *MemStore {
	return &MemStore{
		elections:     map[string]models.Election{},
		offices:       map[string]models.Office{},
		candidates:    map[string]models.Candidate{},
		voters:        map[string]models.Voter{},
		participation: map[models.ParticipationKey]models.ParticipationRecord{},
	}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) Election(_ context.Context, id string) (models.Election, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.elections[id]
	if !ok {
		return models.Election{}, ErrNotFound
	}
	return e, nil
}

func (m *MemStore) ElectionByLink(_ context.Context, link string) (models.Election, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.elections {
		if e.PublicLink != nil && *e.PublicLink == link {
			return e, nil
		}
	}
	return models.Election{}, ErrNotFound
}

func (m *MemStore) CreateElection(_ context.Context, e models.Election) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.elections[e.ID]; ok {
		return ErrDuplicate
	}
	m.elections[e.ID] = e
	return nil
}

func (m *MemStore) SetElectionState(_ context.Context, id, state string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elections[id]
	if !ok {
		return ErrNotFound
	}
	e.State = state
	switch state {
	case models.StateActive:
		e.StartedAt = &at
	case models.StateFinalized:
		e.EndedAt = &at
	}
	m.elections[id] = e
	return nil
}

func (m *MemStore) Office(_ context.Context, id string) (models.Office, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.offices[id]
	if !ok {
		return models.Office{}, ErrNotFound
	}
	return o, nil
}

func (m *MemStore) OfficesByElection(_ context.Context, electionID string) ([]models.Office, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offices := []models.Office{}
	for _, id := range m.officeOrder {
		if o := m.offices[id]; o.ElectionID == electionID {
			offices = append(offices, o)
		}
	}
	return offices, nil
}

func (m *MemStore) CreateOffice(_ context.Context, o models.Office) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offices[o.ID]; ok {
		return ErrDuplicate
	}
	m.offices[o.ID] = o
	m.officeOrder = append(m.officeOrder, o.ID)
	return nil
}

func (m *MemStore) Candidate(_ context.Context, id string) (models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candidates[id]
	if !ok {
		return models.Candidate{}, ErrNotFound
	}
	return c, nil
}

func (m *MemStore) CandidatesByOffice(_ context.Context, officeID string) ([]models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	candidates := []models.Candidate{}
	for _, c := range m.candidates {
		if c.OfficeID == officeID {
			candidates = append(candidates, c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates, nil
}

func (m *MemStore) CreateCandidate(_ context.Context, c models.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.candidates[c.ID]; ok {
		return ErrDuplicate
	}
	m.candidates[c.ID] = c
	return nil
}

func (m *MemStore) Voter(_ context.Context, id string) (models.Voter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.voters[id]
	if !ok {
		return models.Voter{}, ErrNotFound
	}
	return v, nil
}

func (m *MemStore) VoterByToken(_ context.Context, token string) (models.Voter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.voters {
		if v.Token == token {
			return v, nil
		}
	}
	return models.Voter{}, ErrNotFound
}

func (m *MemStore) ActiveVoters(_ context.Context) ([]models.Voter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	voters := []models.Voter{}
	for _, v := range m.voters {
		if v.Active {
			voters = append(voters, v)
		}
	}
	sort.Slice(voters, func(i, j int) bool {
		if voters[i].FullName != voters[j].FullName {
			return voters[i].FullName < voters[j].FullName
		}
		return voters[i].ID < voters[j].ID
	})
	return voters, nil
}

func (m *MemStore) CreateVoter(_ context.Context, v models.Voter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.voters {
		if existing.ID == v.ID || existing.DocumentID == v.DocumentID || existing.Token == v.Token {
			return ErrDuplicate
		}
	}
	m.voters[v.ID] = v
	return nil
}

func (m *MemStore) GrantPowers(_ context.Context, g models.PowerGrant) (models.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.voters[g.VoterID]
	if !ok {
		return models.Voter{}, ErrNotFound
	}
	for _, e := range m.elections {
		if e.State == models.StateActive {
			return models.Voter{}, ErrLocked
		}
	}
	v.Powers += g.Powers
	m.voters[v.ID] = v
	m.grants = append(m.grants, g)
	return v, nil
}

func (m *MemStore) SetVoterActive(_ context.Context, id string, active bool) (models.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.voters[id]
	if !ok {
		return models.Voter{}, ErrNotFound
	}
	v.Active = active
	m.voters[id] = v
	return v, nil
}

func (m *MemStore) VotesUsed(_ context.Context, key models.ParticipationKey) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.participation[key].VotesUsed, nil
}

func (m *MemStore) ParticipationByElection(_ context.Context, electionID string) ([]models.ParticipationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := []models.ParticipationRecord{}
	for key, r := range m.participation {
		if key.ElectionID == electionID {
			records = append(records, r)
		}
	}
	return records, nil
}

func (m *MemStore) TallyByOffice(_ context.Context, electionID, officeID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := make(map[string]int)
	for _, entry := range m.tally {
		if entry.ElectionID == electionID && entry.OfficeID == officeID {
			totals[entry.CandidateID] += entry.Quantity
		}
	}
	return totals, nil
}

func (m *MemStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		store:  m,
		staged: map[models.ParticipationKey]models.ParticipationRecord{},
	}
	if err := fn(tx); err != nil {
		return err
	}

	for key, r := range tx.staged {
		m.participation[key] = r
	}
	m.tally = append(m.tally, tx.appended...)
	return nil
}

// memTx runs with the store's write lock held.
type memTx struct {
	store    *MemStore
	staged   map[models.ParticipationKey]models.ParticipationRecord
	appended []models.TallyEntry
}

func (t *memTx) record(key models.ParticipationKey) (models.ParticipationRecord, bool) {
	if r, ok := t.staged[key]; ok {
		return r, true
	}
	r, ok := t.store.participation[key]
	return r, ok
}

func (t *memTx) ElectionState(_ context.Context, id string) (string, error) {
	e, ok := t.store.elections[id]
	if !ok {
		return "", ErrNotFound
	}
	return e.State, nil
}

func (t *memTx) VotesUsed(_ context.Context, key models.ParticipationKey) (int, error) {
	r, _ := t.record(key)
	return r.VotesUsed, nil
}

func (t *memTx) RecordUsage(_ context.Context, key models.ParticipationKey, delta, limit int) (int, error) {
	r, ok := t.record(key)
	if r.VotesUsed+delta > limit {
		return 0, ErrConflict
	}
	if !ok {
		r = models.ParticipationRecord{
			ElectionID: key.ElectionID,
			VoterID:    key.VoterID,
			OfficeID:   key.OfficeID,
		}
	}
	r.VotesUsed += delta
	r.VotedAt = time.Now()
	t.staged[key] = r
	return r.VotesUsed, nil
}

func (t *memTx) AppendTally(_ context.Context, entry models.TallyEntry) error {
	t.appended = append(t.appended, entry)
	return nil
}
