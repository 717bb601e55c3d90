package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_BinsAndSchedules(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	bin := core.Bin{
		ID:                "bin-1",
		UserID:            "user-1",
		Name:              "Vacation",
		GoalAmount:        core.Money{Cents: 100000},
		MonthlyAllocation: core.Money{Cents: 20000},
		CreatedAt:         time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := repo.CreateBin(ctx, bin); err != nil {
		t.Fatalf("CreateBin: %v", err)
	}

	sched := core.Schedule{
		ID:                "s-1",
		UserID:            "user-1",
		BinID:             "bin-1",
		Name:              "Vacation",
		MonthlyAllocation: core.Money{Cents: 20000},
		Rule:              core.RecurrenceRule{Frequency: core.Custom, AnchorDate: core.NewDate(2024, 3, 1), CustomMonth: 2, CustomDay: 30},
	}
	if err := repo.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	got, err := repo.ListSchedules(ctx, "user-1")
	if err != nil || len(got) != 1 {
		t.Fatalf("ListSchedules = %v, %v", got, err)
	}
	if got[0].Rule.CustomMonth != 2 || got[0].Rule.CustomDay != 30 || !got[0].Rule.AnchorDate.SameDay(core.NewDate(2024, 3, 1)) {
		t.Errorf("rule round trip = %+v", got[0].Rule)
	}

	if err := repo.SetBinAmount(ctx, "user-1", "bin-1", core.Money{Cents: 5000}); err != nil {
		t.Fatalf("SetBinAmount: %v", err)
	}
	stored, err := repo.GetBin(ctx, "user-1", "bin-1")
	if err != nil || stored.CurrentAmount.Cents != 5000 {
		t.Fatalf("GetBin = %+v, %v", stored, err)
	}

	if err := repo.SetBinAmount(ctx, "user-2", "bin-1", core.Money{Cents: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user's bin should be not found, got %v", err)
	}

	owners, err := repo.ListScheduleOwners(ctx)
	if err != nil || len(owners) != 1 || owners[0] != "user-1" {
		t.Errorf("ListScheduleOwners = %v, %v", owners, err)
	}

	if err := repo.DeleteBin(ctx, "user-1", "bin-1"); err != nil {
		t.Fatalf("DeleteBin: %v", err)
	}
	if left, _ := repo.ListSchedules(ctx, "user-1"); len(left) != 0 {
		t.Errorf("schedules should be deleted with their bin, got %d", len(left))
	}
	if _, err := repo.GetBin(ctx, "user-1", "bin-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBin after delete = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_SubscriptionBilling(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	sub := core.Subscription{
		ID:              "sub-1",
		UserID:          "user-1",
		Name:            "Music",
		Amount:          core.Money{Cents: 999},
		Occurrence:      core.OccurrenceMonthly,
		StartDate:       core.NewDate(2024, 1, 31),
		NextBillingDate: core.NewDate(2024, 1, 31),
	}
	if err := repo.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	paid := core.NewDate(2024, 2, 1)
	if err := repo.UpdateBilling(ctx, "user-1", "sub-1", core.NewDate(2024, 2, 29), &paid); err != nil {
		t.Fatalf("UpdateBilling: %v", err)
	}
	got, err := repo.GetSubscription(ctx, "user-1", "sub-1")
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if !got.NextBillingDate.SameDay(core.NewDate(2024, 2, 29)) || got.LastPaidDate == nil || !got.LastPaidDate.SameDay(paid) {
		t.Errorf("billing after pay = %s / %v", got.NextBillingDate, got.LastPaidDate)
	}

	if err := repo.UpdateBilling(ctx, "user-1", "sub-1", core.NewDate(2024, 1, 29), nil); err != nil {
		t.Fatalf("UpdateBilling undo: %v", err)
	}
	got, _ = repo.GetSubscription(ctx, "user-1", "sub-1")
	if got.LastPaidDate != nil {
		t.Errorf("last paid should be cleared, got %v", got.LastPaidDate)
	}
}

func TestSQLiteRepository_ExpensesAndProfile(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetProfile(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetProfile on empty db = %v, want ErrNotFound", err)
	}
	if err := repo.UpsertProfile(ctx, core.Profile{UserID: "user-1", MonthlyIncome: core.Money{Cents: 400000}}); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	if err := repo.UpsertProfile(ctx, core.Profile{UserID: "user-1", MonthlyIncome: core.Money{Cents: 450000}, TelegramChatID: 42}); err != nil {
		t.Fatalf("UpsertProfile update: %v", err)
	}
	p, err := repo.GetProfile(ctx, "user-1")
	if err != nil || p.MonthlyIncome.Cents != 450000 || p.TelegramChatID != 42 {
		t.Fatalf("GetProfile = %+v, %v", p, err)
	}

	e := core.Expense{ID: "e-1", UserID: "user-1", Name: "Rent", Amount: core.Money{Cents: 120000}}
	if err := repo.CreateExpense(ctx, e); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	e.Amount = core.Money{Cents: 125000}
	if err := repo.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	list, err := repo.ListExpenses(ctx, "user-1")
	if err != nil || len(list) != 1 || list[0].Amount.Cents != 125000 {
		t.Fatalf("ListExpenses = %+v, %v", list, err)
	}
	if err := repo.DeleteExpense(ctx, "user-1", "e-1"); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := repo.DeleteExpense(ctx, "user-1", "e-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}
