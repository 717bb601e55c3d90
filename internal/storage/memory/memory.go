// Package memory is an in-process implementation of storage.Store used for
// local development and tests. Data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/storage"
)

type Store struct {
	mu            sync.Mutex
	bins          []core.Bin
	schedules     []core.Schedule
	subscriptions []core.Subscription
	expenses      []core.Expense
	profiles      map[string]core.Profile

	// SetBinAmountHook, when set, runs before every SetBinAmount and can
	// fail the write. Tests use it to simulate a broken database.
	SetBinAmountHook func(userID, binID string) error
}

func New() *Store {
	return &Store{profiles: make(map[string]core.Profile)}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// Bins

func (s *Store) ListBins(_ context.Context, userID string) ([]core.Bin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Bin
	for _, b := range s.bins {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) binIndex(userID, id string) int {
	for i, b := range s.bins {
		if b.UserID == userID && b.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) GetBin(_ context.Context, userID, id string) (core.Bin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.binIndex(userID, id)
	if i < 0 {
		return core.Bin{}, storage.ErrNotFound
	}
	return s.bins[i], nil
}

func (s *Store) CreateBin(_ context.Context, b core.Bin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.CreatedAt = stamp(b.CreatedAt)
	s.bins = append(s.bins, b)
	return nil
}

func (s *Store) UpdateBin(_ context.Context, b core.Bin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.binIndex(b.UserID, b.ID)
	if i < 0 {
		return storage.ErrNotFound
	}
	b.CreatedAt = s.bins[i].CreatedAt
	s.bins[i] = b
	return nil
}

func (s *Store) SetBinAmount(_ context.Context, userID, binID string, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetBinAmountHook != nil {
		if err := s.SetBinAmountHook(userID, binID); err != nil {
			return err
		}
	}
	i := s.binIndex(userID, binID)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.bins[i].CurrentAmount = amount
	return nil
}

func (s *Store) DeleteBin(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.binIndex(userID, id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.bins = append(s.bins[:i], s.bins[i+1:]...)
	s.deleteSchedulesByBin(userID, id)
	return nil
}

// Schedules

func (s *Store) ListSchedules(_ context.Context, userID string) ([]core.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Schedule
	for _, sc := range s.schedules {
		if sc.UserID == userID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *Store) CreateSchedule(_ context.Context, sc core.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.CreatedAt = stamp(sc.CreatedAt)
	s.schedules = append(s.schedules, sc)
	return nil
}

func (s *Store) DeleteSchedule(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sc := range s.schedules {
		if sc.UserID == userID && sc.ID == id {
			s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) DeleteSchedulesByBin(_ context.Context, userID, binID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteSchedulesByBin(userID, binID), nil
}

func (s *Store) deleteSchedulesByBin(userID, binID string) int {
	kept := s.schedules[:0]
	removed := 0
	for _, sc := range s.schedules {
		if sc.UserID == userID && sc.BinID == binID {
			removed++
			continue
		}
		kept = append(kept, sc)
	}
	s.schedules = kept
	return removed
}

func (s *Store) ListScheduleOwners(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var users []string
	for _, sc := range s.schedules {
		if _, ok := seen[sc.UserID]; ok {
			continue
		}
		seen[sc.UserID] = struct{}{}
		users = append(users, sc.UserID)
	}
	sort.Strings(users)
	return users, nil
}

// Subscriptions

func (s *Store) ListSubscriptions(_ context.Context, userID string) ([]core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextBillingDate.IsBefore(out[j].NextBillingDate)
	})
	return out, nil
}

func (s *Store) subscriptionIndex(userID, id string) int {
	for i, sub := range s.subscriptions {
		if sub.UserID == userID && sub.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) GetSubscription(_ context.Context, userID, id string) (core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.subscriptionIndex(userID, id)
	if i < 0 {
		return core.Subscription{}, storage.ErrNotFound
	}
	return s.subscriptions[i], nil
}

func (s *Store) CreateSubscription(_ context.Context, sub core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.CreatedAt = stamp(sub.CreatedAt)
	s.subscriptions = append(s.subscriptions, sub)
	return nil
}

func (s *Store) UpdateBilling(_ context.Context, userID, id string, next core.Date, lastPaid *core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.subscriptionIndex(userID, id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.subscriptions[i].NextBillingDate = next
	if lastPaid != nil {
		d := *lastPaid
		lastPaid = &d
	}
	s.subscriptions[i].LastPaidDate = lastPaid
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.subscriptionIndex(userID, id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
	return nil
}

// Expenses

func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.CreatedAt = stamp(e.CreatedAt)
	s.expenses = append(s.expenses, e)
	return nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.expenses {
		if cur.UserID == e.UserID && cur.ID == e.ID {
			e.CreatedAt = cur.CreatedAt
			s.expenses[i] = e
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.UserID == userID && e.ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

// Profiles

func (s *Store) GetProfile(_ context.Context, userID string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpsertProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

var _ storage.Store = (*Store)(nil)
