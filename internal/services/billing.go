package services

import (
	"fmt"

	"budget/internal/core"
)

// PaymentStatus describes where a subscription stands relative to today.
type PaymentStatus string

const (
	StatusUpcoming PaymentStatus = "upcoming"
	StatusDue      PaymentStatus = "due"
	StatusOverdue  PaymentStatus = "overdue"
)

// overdueAfterDays is how long a bill can sit unpaid before it is overdue.
const overdueAfterDays = 7

func billingMonths(o core.Occurrence) (int, error) {
	switch o {
	case core.OccurrenceMonthly:
		return 1, nil
	case core.OccurrenceBiMonthly:
		return 2, nil
	case core.OccurrenceAnnually:
		return 12, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidOccurrence, o)
	}
}

// AdvanceBillingDate moves a billing date one period forward, clamping the
// day to the end of shorter months.
func AdvanceBillingDate(date core.Date, o core.Occurrence) (core.Date, error) {
	months, err := billingMonths(o)
	if err != nil {
		return core.Date{}, err
	}
	return date.AddMonthsClamped(months), nil
}

// RetreatBillingDate moves a billing date one period back. It undoes
// AdvanceBillingDate except when advancing clamped the day: Jan 31 advances
// to Feb 28 and retreats to Jan 28.
func RetreatBillingDate(date core.Date, o core.Occurrence) (core.Date, error) {
	months, err := billingMonths(o)
	if err != nil {
		return core.Date{}, err
	}
	return date.AddMonthsClamped(-months), nil
}

// SubscriptionStatus reports whether the next bill is still upcoming, due,
// or more than a week overdue.
func SubscriptionStatus(sub core.Subscription, today core.Date) PaymentStatus {
	if sub.NextBillingDate.IsAfter(today) {
		return StatusUpcoming
	}
	if core.DaysBetween(sub.NextBillingDate, today) > overdueAfterDays {
		return StatusOverdue
	}
	return StatusDue
}
