package core

// BudgetSummary is the monthly picture shown on the dashboard. Subscriptions
// are converted to a monthly equivalent before being totalled.
type BudgetSummary struct {
	MonthlyIncome      Money
	TotalExpenses      Money
	TotalSubscriptions Money
	TotalSavings       Money
	AfterExpenses      Money
	AfterSubscriptions Money
	// RemainingBalance is income minus expenses minus savings allocations.
	RemainingBalance Money
}

// MonthlyEquivalent returns what a subscription costs per month.
func MonthlyEquivalent(amount Money, o Occurrence) Money {
	switch o {
	case OccurrenceBiMonthly:
		return amount.DivideBy(2)
	case OccurrenceAnnually:
		return amount.DivideBy(12)
	default:
		return amount
	}
}

// Summarize totals a user's budget.
func Summarize(p Profile, expenses []Expense, subs []Subscription, bins []Bin) BudgetSummary {
	var s BudgetSummary
	s.MonthlyIncome = p.MonthlyIncome
	for _, e := range expenses {
		s.TotalExpenses = s.TotalExpenses.Add(e.Amount)
	}
	for _, sub := range subs {
		s.TotalSubscriptions = s.TotalSubscriptions.Add(MonthlyEquivalent(sub.Amount, sub.Occurrence))
	}
	for _, b := range bins {
		s.TotalSavings = s.TotalSavings.Add(b.MonthlyAllocation)
	}
	s.AfterExpenses = s.MonthlyIncome.Sub(s.TotalExpenses)
	s.AfterSubscriptions = s.AfterExpenses.Sub(s.TotalSubscriptions)
	s.RemainingBalance = s.AfterExpenses.Sub(s.TotalSavings)
	return s
}
