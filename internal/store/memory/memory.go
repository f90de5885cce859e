// Package memory is the in-memory store backend used by tests and local
// development. Everything is guarded by a single mutex; reads return copies.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

type Store struct {
	mu          sync.Mutex
	seq         int
	users       map[string]core.User
	userOrder   []string
	groups      map[string]core.Group
	groupOrder  []string
	expenses    map[string]core.Expense
	settlements []core.SettlementRecord
}

func New() *Store {
	return &Store{
		users:    make(map[string]core.User),
		groups:   make(map[string]core.Group),
		expenses: make(map[string]core.Expense),
	}
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.nextID("usr")
	}
	if _, exists := s.users[u.ID]; exists {
		return core.User{}, fmt.Errorf("user %s: %w", u.ID, core.ErrDuplicate)
	}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *Store) CreateGroup(_ context.Context, g core.Group) (core.Group, error) {
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = s.nextID("grp")
	}
	if _, exists := s.groups[g.ID]; exists {
		return core.Group{}, fmt.Errorf("group %s: %w", g.ID, core.ErrDuplicate)
	}
	g.Members = append([]string(nil), g.Members...)
	s.groups[g.ID] = g
	s.groupOrder = append(s.groupOrder, g.ID)
	return g, nil
}

func (s *Store) GetGroup(_ context.Context, id string) (core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return core.Group{}, fmt.Errorf("group %s: %w", id, core.ErrNotFound)
	}
	g.Members = append([]string(nil), g.Members...)
	return g, nil
}

func (s *Store) ListGroups(_ context.Context) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Group, 0, len(s.groupOrder))
	for _, id := range s.groupOrder {
		g := s.groups[id]
		g.Members = append([]string(nil), g.Members...)
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) AddMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, core.ErrNotFound)
	}
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	for _, m := range g.Members {
		if m == userID {
			return nil
		}
	}
	g.Members = append(g.Members, userID)
	s.groups[groupID] = g
	return nil
}

func (s *Store) RemoveMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, core.ErrNotFound)
	}
	for i, m := range g.Members {
		if m == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			s.groups[groupID] = g
			return nil
		}
	}
	return fmt.Errorf("member %s in group %s: %w", userID, groupID, core.ErrNotFound)
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.nextID("exp")
	}
	if _, exists := s.expenses[e.ID]; exists {
		return core.Expense{}, fmt.Errorf("expense %s: %w", e.ID, core.ErrDuplicate)
	}
	e.Participants = append([]core.Share(nil), e.Participants...)
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	e.Participants = append([]core.Share(nil), e.Participants...)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return fmt.Errorf("expense %s: %w", e.ID, core.ErrNotFound)
	}
	e.Participants = append([]core.Share(nil), e.Participants...)
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, opts store.ListOptions) ([]core.Expense, error) {
	opts = opts.Normalized()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if opts.GroupID != "" && e.GroupID != opts.GroupID {
			continue
		}
		if opts.UserID != "" && !involves(e, opts.UserID) {
			continue
		}
		e.Participants = append([]core.Share(nil), e.Participants...)
		out = append(out, e)
	}
	sortExpenses(out, opts.SortBy, opts.Dir)
	return out, nil
}

func involves(e core.Expense, userID string) bool {
	if e.PaidBy == userID {
		return true
	}
	for _, p := range e.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func sortExpenses(expenses []core.Expense, by store.SortField, dir store.SortDir) {
	less := func(a, b core.Expense) bool {
		switch by {
		case store.SortByAmount:
			if a.Amount.Cents != b.Amount.Cents {
				return a.Amount.Cents < b.Amount.Cents
			}
		case store.SortByTitle:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		default:
			if !a.Date.Equal(b.Date.Time) {
				return a.Date.Before(b.Date.Time)
			}
		}
		return a.ID < b.ID
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		if dir == store.SortDesc {
			return less(expenses[j], expenses[i])
		}
		return less(expenses[i], expenses[j])
	})
}

func (s *Store) CreateSettlement(_ context.Context, rec core.SettlementRecord) (core.SettlementRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.SettlementRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = s.nextID("stl")
	}
	for _, existing := range s.settlements {
		if existing.ID == rec.ID {
			return core.SettlementRecord{}, fmt.Errorf("settlement %s: %w", rec.ID, core.ErrDuplicate)
		}
	}
	s.settlements = append(s.settlements, rec)
	return rec, nil
}

func (s *Store) UpdateSettlementStatus(_ context.Context, id string, status core.SettlementStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid settlement status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.settlements {
		if s.settlements[i].ID == id {
			s.settlements[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("settlement %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListSettlements(_ context.Context, groupID string) ([]core.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SettlementRecord, 0, len(s.settlements))
	for _, rec := range s.settlements {
		if groupID != "" && rec.GroupID != groupID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) ReplacePendingSettlements(_ context.Context, groupID string, records []core.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.settlements[:0]
	for _, rec := range s.settlements {
		if rec.GroupID == groupID && rec.Status == core.SettlementPending {
			continue
		}
		kept = append(kept, rec)
	}
	s.settlements = kept
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = s.nextID("stl")
		}
		rec.GroupID = groupID
		if rec.Status == "" {
			rec.Status = core.SettlementPending
		}
		s.settlements = append(s.settlements, rec)
	}
	return nil
}
