package services

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/core"
	"budget/internal/log"
)

// BillingStore is the storage the payment flow needs.
type BillingStore interface {
	GetSubscription(ctx context.Context, userID, id string) (core.Subscription, error)
	UpdateBilling(ctx context.Context, userID, id string, next core.Date, lastPaid *core.Date) error
}

// SubscriptionService moves subscription billing dates when a bill is paid
// or a payment is undone.
type SubscriptionService struct {
	store    BillingStore
	onChange func(userID string)
}

func NewSubscriptionService(store BillingStore) *SubscriptionService {
	return &SubscriptionService{store: store}
}

// OnChange registers a callback run after a billing date moves.
func (s *SubscriptionService) OnChange(fn func(userID string)) {
	s.onChange = fn
}

// MarkPaid advances the next billing date by one period and records today
// as the last payment.
func (s *SubscriptionService) MarkPaid(ctx context.Context, userID, id string, today core.Date) (core.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, userID, id)
	if err != nil {
		return core.Subscription{}, err
	}
	next, err := AdvanceBillingDate(sub.NextBillingDate, sub.Occurrence)
	if err != nil {
		return core.Subscription{}, err
	}
	paid := today
	if err := s.store.UpdateBilling(ctx, userID, id, next, &paid); err != nil {
		return core.Subscription{}, fmt.Errorf("update billing: %w", err)
	}

	slog.InfoContext(ctx, "Subscription marked as paid",
		log.FieldComponent, log.ComponentBilling,
		log.FieldOperation, log.OpPay,
		log.FieldUserID, userID,
		log.FieldSubscription, id,
		"next_billing_date", next.String())

	sub.NextBillingDate = next
	sub.LastPaidDate = &paid
	s.changed(userID)
	return sub, nil
}

// UndoPayment moves the next billing date back one period and clears the
// last payment date.
func (s *SubscriptionService) UndoPayment(ctx context.Context, userID, id string) (core.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, userID, id)
	if err != nil {
		return core.Subscription{}, err
	}
	prev, err := RetreatBillingDate(sub.NextBillingDate, sub.Occurrence)
	if err != nil {
		return core.Subscription{}, err
	}
	if err := s.store.UpdateBilling(ctx, userID, id, prev, nil); err != nil {
		return core.Subscription{}, fmt.Errorf("update billing: %w", err)
	}

	slog.InfoContext(ctx, "Subscription payment undone",
		log.FieldComponent, log.ComponentBilling,
		log.FieldOperation, log.OpUndo,
		log.FieldUserID, userID,
		log.FieldSubscription, id,
		"next_billing_date", prev.String())

	sub.NextBillingDate = prev
	sub.LastPaidDate = nil
	s.changed(userID)
	return sub, nil
}

func (s *SubscriptionService) changed(userID string) {
	if s.onChange != nil {
		s.onChange(userID)
	}
}
