package storage

import (
	"context"
	"errors"

	"budget/internal/core"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// BinStore persists savings bins.
type BinStore interface {
	ListBins(ctx context.Context, userID string) ([]core.Bin, error)
	GetBin(ctx context.Context, userID, id string) (core.Bin, error)
	CreateBin(ctx context.Context, b core.Bin) error
	UpdateBin(ctx context.Context, b core.Bin) error
	// SetBinAmount writes a single bin's balance. Each call is an
	// independent write.
	SetBinAmount(ctx context.Context, userID, binID string, amount core.Money) error
	// DeleteBin removes the bin together with its schedules.
	DeleteBin(ctx context.Context, userID, id string) error
}

// ScheduleStore persists transfer schedules. Schedules are never updated in place.
type ScheduleStore interface {
	ListSchedules(ctx context.Context, userID string) ([]core.Schedule, error)
	CreateSchedule(ctx context.Context, s core.Schedule) error
	DeleteSchedule(ctx context.Context, userID, id string) error
	DeleteSchedulesByBin(ctx context.Context, userID, binID string) (int, error)
	// ListScheduleOwners returns every user that owns at least one schedule.
	ListScheduleOwners(ctx context.Context) ([]string, error)
}

type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error)
	GetSubscription(ctx context.Context, userID, id string) (core.Subscription, error)
	CreateSubscription(ctx context.Context, s core.Subscription) error
	// UpdateBilling sets the next billing date and the last paid date
	// (nil clears it).
	UpdateBilling(ctx context.Context, userID, id string, next core.Date, lastPaid *core.Date) error
	DeleteSubscription(ctx context.Context, userID, id string) error
}

type ExpenseStore interface {
	ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) error
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, userID, id string) error
}

type ProfileStore interface {
	// GetProfile returns ErrNotFound when the user never saved a profile.
	GetProfile(ctx context.Context, userID string) (core.Profile, error)
	UpsertProfile(ctx context.Context, p core.Profile) error
}

// Store is everything the services need from a backend.
type Store interface {
	BinStore
	ScheduleStore
	SubscriptionStore
	ExpenseStore
	ProfileStore
	Ping(ctx context.Context) error
	Close() error
}
