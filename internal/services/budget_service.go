package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
)

// ErrInvalidInput wraps every validation failure returned by BudgetService.
var ErrInvalidInput = errors.New("invalid input")

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// TodayIn returns the current calendar date in loc.
func TodayIn(loc *time.Location) core.Date {
	if loc == nil {
		loc = time.UTC
	}
	return core.DateOf(time.Now().In(loc))
}

type (
	BinInput struct {
		Name              string
		GoalAmount        core.Money
		MonthlyAllocation core.Money
		CurrentAmount     core.Money
	}

	// BinPatch changes only the fields that are set.
	BinPatch struct {
		Name              *string
		CurrentAmount     *core.Money
		GoalAmount        *core.Money
		MonthlyAllocation *core.Money
	}

	ScheduleInput struct {
		BinID             string
		Name              string
		MonthlyAllocation core.Money
		Frequency         core.Frequency
		CustomMonth       int
		CustomDay         int
	}

	// ScheduleView is a schedule with its next firing date, nil when the
	// rule never fires.
	ScheduleView struct {
		core.Schedule
		NextOccurrence *core.Date
	}

	SubscriptionInput struct {
		Name       string
		Amount     core.Money
		Occurrence core.Occurrence
		StartDate  core.Date
	}

	SubscriptionView struct {
		core.Subscription
		Status      PaymentStatus
		MonthlyCost core.Money
	}

	ExpensePatch struct {
		Name   *string
		Amount *core.Money
	}
)

// BudgetService holds the CRUD operations behind the API and the cached
// monthly summary.
type BudgetService struct {
	store     storage.Store
	summaries *cache.LRUCache[core.BudgetSummary]
}

// NewBudgetService creates the service. summaries may be nil to disable
// caching.
func NewBudgetService(store storage.Store, summaries *cache.LRUCache[core.BudgetSummary]) *BudgetService {
	return &BudgetService{store: store, summaries: summaries}
}

// Invalidate drops the cached summary for userID.
func (s *BudgetService) Invalidate(userID string) {
	if s.summaries != nil {
		s.summaries.Delete(userID)
	}
}

// Bins

func (s *BudgetService) ListBins(ctx context.Context, userID string) ([]core.Bin, error) {
	return s.store.ListBins(ctx, userID)
}

func (s *BudgetService) CreateBin(ctx context.Context, userID string, in BinInput) (core.Bin, error) {
	b := core.Bin{
		ID:                uuid.NewString(),
		UserID:            userID,
		Name:              strings.TrimSpace(in.Name),
		CurrentAmount:     in.CurrentAmount,
		GoalAmount:        in.GoalAmount,
		MonthlyAllocation: in.MonthlyAllocation,
		CreatedAt:         time.Now().UTC(),
	}
	if err := b.Validate(); err != nil {
		return core.Bin{}, invalid(err)
	}
	if err := s.store.CreateBin(ctx, b); err != nil {
		return core.Bin{}, fmt.Errorf("create bin: %w", err)
	}
	s.logChange(ctx, log.OpCreate, userID, log.FieldBinID, b.ID)
	s.Invalidate(userID)
	return b, nil
}

func (s *BudgetService) UpdateBin(ctx context.Context, userID, id string, p BinPatch) (core.Bin, error) {
	b, err := s.store.GetBin(ctx, userID, id)
	if err != nil {
		return core.Bin{}, err
	}
	if p.Name != nil {
		b.Name = strings.TrimSpace(*p.Name)
	}
	if p.CurrentAmount != nil {
		b.CurrentAmount = *p.CurrentAmount
	}
	if p.GoalAmount != nil {
		b.GoalAmount = *p.GoalAmount
	}
	if p.MonthlyAllocation != nil {
		b.MonthlyAllocation = *p.MonthlyAllocation
	}
	if err := b.Validate(); err != nil {
		return core.Bin{}, invalid(err)
	}
	if err := s.store.UpdateBin(ctx, b); err != nil {
		return core.Bin{}, fmt.Errorf("update bin: %w", err)
	}
	s.logChange(ctx, log.OpUpdate, userID, log.FieldBinID, id)
	s.Invalidate(userID)
	return b, nil
}

// DeleteBin removes the bin and every schedule that feeds it.
func (s *BudgetService) DeleteBin(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteBin(ctx, userID, id); err != nil {
		return err
	}
	s.logChange(ctx, log.OpDelete, userID, log.FieldBinID, id)
	s.Invalidate(userID)
	return nil
}

// Schedules

func (s *BudgetService) ListSchedules(ctx context.Context, userID string, today core.Date) ([]ScheduleView, error) {
	schedules, err := s.store.ListSchedules(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]ScheduleView, 0, len(schedules))
	for _, sc := range schedules {
		v := ScheduleView{Schedule: sc}
		if next, ok := NextOccurrence(sc.Rule, today); ok {
			v.NextOccurrence = &next
		}
		views = append(views, v)
	}
	return views, nil
}

// CreateSchedule anchors the new schedule on today. The bin must exist.
func (s *BudgetService) CreateSchedule(ctx context.Context, userID string, in ScheduleInput, today core.Date) (core.Schedule, error) {
	sc := core.Schedule{
		ID:                uuid.NewString(),
		UserID:            userID,
		BinID:             strings.TrimSpace(in.BinID),
		Name:              strings.TrimSpace(in.Name),
		MonthlyAllocation: in.MonthlyAllocation,
		Rule: core.RecurrenceRule{
			Frequency:  in.Frequency,
			AnchorDate: today,
		},
		CreatedAt: time.Now().UTC(),
	}
	if in.Frequency == core.Custom {
		sc.Rule.CustomMonth = in.CustomMonth
		sc.Rule.CustomDay = in.CustomDay
	}
	if err := sc.Validate(); err != nil {
		return core.Schedule{}, invalid(err)
	}
	if _, err := s.store.GetBin(ctx, userID, sc.BinID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.Schedule{}, ErrBinNotFound
		}
		return core.Schedule{}, err
	}
	if err := s.store.CreateSchedule(ctx, sc); err != nil {
		return core.Schedule{}, fmt.Errorf("create schedule: %w", err)
	}
	s.logChange(ctx, log.OpCreate, userID, log.FieldScheduleID, sc.ID)
	return sc, nil
}

func (s *BudgetService) DeleteSchedule(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteSchedule(ctx, userID, id); err != nil {
		return err
	}
	s.logChange(ctx, log.OpDelete, userID, log.FieldScheduleID, id)
	return nil
}

func (s *BudgetService) DeleteSchedulesByBin(ctx context.Context, userID, binID string) (int, error) {
	n, err := s.store.DeleteSchedulesByBin(ctx, userID, binID)
	if err != nil {
		return 0, err
	}
	s.logChange(ctx, log.OpDelete, userID, log.FieldBinID, binID, "schedules", n)
	return n, nil
}

// Subscriptions

func (s *BudgetService) ListSubscriptions(ctx context.Context, userID string, today core.Date) ([]SubscriptionView, error) {
	subs, err := s.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]SubscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, SubscriptionView{
			Subscription: sub,
			Status:       SubscriptionStatus(sub, today),
			MonthlyCost:  core.MonthlyEquivalent(sub.Amount, sub.Occurrence),
		})
	}
	return views, nil
}

// CreateSubscription bills first on the start date.
func (s *BudgetService) CreateSubscription(ctx context.Context, userID string, in SubscriptionInput) (core.Subscription, error) {
	sub := core.Subscription{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            strings.TrimSpace(in.Name),
		Amount:          in.Amount,
		Occurrence:      in.Occurrence,
		StartDate:       in.StartDate,
		NextBillingDate: in.StartDate,
		CreatedAt:       time.Now().UTC(),
	}
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, invalid(err)
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	s.logChange(ctx, log.OpCreate, userID, log.FieldSubscription, sub.ID)
	s.Invalidate(userID)
	return sub, nil
}

func (s *BudgetService) DeleteSubscription(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteSubscription(ctx, userID, id); err != nil {
		return err
	}
	s.logChange(ctx, log.OpDelete, userID, log.FieldSubscription, id)
	s.Invalidate(userID)
	return nil
}

// Expenses

func (s *BudgetService) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, userID)
}

func (s *BudgetService) CreateExpense(ctx context.Context, userID, name string, amount core.Money) (core.Expense, error) {
	e := core.Expense{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, invalid(err)
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.logChange(ctx, log.OpCreate, userID, "expense_id", e.ID)
	s.Invalidate(userID)
	return e, nil
}

func (s *BudgetService) UpdateExpense(ctx context.Context, userID, id string, p ExpensePatch) (core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return core.Expense{}, err
	}
	var (
		e     core.Expense
		found bool
	)
	for _, cur := range expenses {
		if cur.ID == id {
			e, found = cur, true
			break
		}
	}
	if !found {
		return core.Expense{}, storage.ErrNotFound
	}
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, invalid(err)
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.logChange(ctx, log.OpUpdate, userID, "expense_id", id)
	s.Invalidate(userID)
	return e, nil
}

func (s *BudgetService) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.logChange(ctx, log.OpDelete, userID, "expense_id", id)
	s.Invalidate(userID)
	return nil
}

// Profile

// GetProfile returns an empty profile for users that never saved one.
func (s *BudgetService) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Profile{UserID: userID}, nil
	}
	return p, err
}

func (s *BudgetService) UpsertProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	if err := p.Validate(); err != nil {
		return core.Profile{}, invalid(err)
	}
	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return core.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	s.logChange(ctx, log.OpUpdate, p.UserID, "profile", true)
	s.Invalidate(p.UserID)
	return p, nil
}

// Summary

// Summary totals the user's income, expenses, subscriptions and savings
// allocations. Results are cached until one of those changes.
func (s *BudgetService) Summary(ctx context.Context, userID string) (core.BudgetSummary, error) {
	if s.summaries != nil {
		if cached, ok := s.summaries.Get(userID); ok {
			return cached, nil
		}
	}

	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return core.BudgetSummary{}, fmt.Errorf("get profile: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return core.BudgetSummary{}, fmt.Errorf("list expenses: %w", err)
	}
	subs, err := s.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return core.BudgetSummary{}, fmt.Errorf("list subscriptions: %w", err)
	}
	bins, err := s.store.ListBins(ctx, userID)
	if err != nil {
		return core.BudgetSummary{}, fmt.Errorf("list bins: %w", err)
	}

	summary := core.Summarize(profile, expenses, subs, bins)
	if s.summaries != nil {
		s.summaries.Set(userID, summary)
	}
	return summary, nil
}

func (s *BudgetService) logChange(ctx context.Context, op, userID string, args ...any) {
	attrs := append([]any{
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, op,
		log.FieldUserID, userID,
	}, args...)
	slog.DebugContext(ctx, "Budget data changed", attrs...)
}
