package services

import (
	"context"
	"errors"
	"testing"

	"budget/internal/core"
	"budget/internal/storage"
	"budget/internal/storage/memory"
)

func seedSubscription(t *testing.T, s *memory.Store, next core.Date, occ core.Occurrence) {
	t.Helper()
	err := s.CreateSubscription(context.Background(), core.Subscription{
		ID:              "sub1",
		UserID:          "u1",
		Name:            "Streaming",
		Amount:          core.Money{Cents: 1299},
		Occurrence:      occ,
		StartDate:       next,
		NextBillingDate: next,
	})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
}

func TestMarkPaidThenUndo(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedSubscription(t, store, core.NewDate(2024, 5, 14), core.OccurrenceMonthly)

	var changed []string
	svc := NewSubscriptionService(store)
	svc.OnChange(func(userID string) { changed = append(changed, userID) })

	today := core.NewDate(2024, 5, 15)
	sub, err := svc.MarkPaid(ctx, "u1", "sub1", today)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if !sub.NextBillingDate.SameDay(core.NewDate(2024, 6, 14)) {
		t.Errorf("next billing = %s, want 2024-06-14", sub.NextBillingDate)
	}
	stored, _ := store.GetSubscription(ctx, "u1", "sub1")
	if stored.LastPaidDate == nil || !stored.LastPaidDate.SameDay(today) {
		t.Errorf("last paid = %v, want %s", stored.LastPaidDate, today)
	}

	sub, err = svc.UndoPayment(ctx, "u1", "sub1")
	if err != nil {
		t.Fatalf("UndoPayment: %v", err)
	}
	if !sub.NextBillingDate.SameDay(core.NewDate(2024, 5, 14)) {
		t.Errorf("after undo = %s, want 2024-05-14", sub.NextBillingDate)
	}
	stored, _ = store.GetSubscription(ctx, "u1", "sub1")
	if stored.LastPaidDate != nil {
		t.Errorf("undo should clear the last paid date, got %s", stored.LastPaidDate)
	}
	if len(changed) != 2 {
		t.Errorf("OnChange called %d times, want 2", len(changed))
	}
}

func TestMarkPaidClampsMonthEnd(t *testing.T) {
	store := memory.New()
	seedSubscription(t, store, core.NewDate(2023, 1, 31), core.OccurrenceMonthly)
	svc := NewSubscriptionService(store)

	sub, err := svc.MarkPaid(context.Background(), "u1", "sub1", core.NewDate(2023, 1, 31))
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if !sub.NextBillingDate.SameDay(core.NewDate(2023, 2, 28)) {
		t.Errorf("next billing = %s, want 2023-02-28", sub.NextBillingDate)
	}
}

func TestMarkPaidErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedSubscription(t, store, core.NewDate(2024, 5, 14), core.Occurrence("weekly"))
	svc := NewSubscriptionService(store)

	if _, err := svc.MarkPaid(ctx, "u1", "missing", core.NewDate(2024, 5, 14)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing subscription: got %v, want ErrNotFound", err)
	}
	if _, err := svc.MarkPaid(ctx, "other", "sub1", core.NewDate(2024, 5, 14)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("other user's subscription: got %v, want ErrNotFound", err)
	}
	if _, err := svc.MarkPaid(ctx, "u1", "sub1", core.NewDate(2024, 5, 14)); !errors.Is(err, core.ErrInvalidOccurrence) {
		t.Errorf("bad occurrence: got %v, want ErrInvalidOccurrence", err)
	}
}
