package services

import (
	"errors"

	"budget/internal/core"
)

// ErrBinNotFound is reported for a due schedule whose bin was not supplied.
var ErrBinNotFound = errors.New("bin missing")

// TransferOutcome is one report entry for a schedule that was due.
// Err is nil for a successful transfer.
type TransferOutcome struct {
	ScheduleID     string
	BinID          string
	BinName        string
	TransferAmount core.Money
	NewTotal       core.Money
	Frequency      core.Frequency
	Err            error
}

// Succeeded reports whether the transfer was staged.
func (o TransferOutcome) Succeeded() bool {
	return o.Err == nil
}

// TransferResult holds the staged bin balances and the per-schedule report.
type TransferResult struct {
	UpdatedBins map[string]core.Bin
	Report      []TransferOutcome
}

// Transferred returns the number of successful transfers.
func (r TransferResult) Transferred() int {
	n := 0
	for _, o := range r.Report {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failures returns the report entries that did not transfer.
func (r TransferResult) Failures() []TransferOutcome {
	var out []TransferOutcome
	for _, o := range r.Report {
		if !o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}

// TransferAmount derives the per-firing amount from a monthly allocation.
// Weekly and semi-weekly use a fixed quarter and half of the month.
func TransferAmount(monthly core.Money, f core.Frequency) core.Money {
	switch f {
	case core.Weekly:
		return monthly.DivideBy(4)
	case core.SemiWeekly:
		return monthly.DivideBy(2)
	default:
		return monthly
	}
}

// ProcessTransfers decides which schedules fire on today and stages the
// resulting bin balances. Schedules are evaluated in order and independently;
// a schedule whose bin is missing gets an ErrBinNotFound entry and the rest
// are still processed. Schedules that are not due produce no report entry.
// The bins map is never modified. Calling it twice for the same day stages
// the transfers twice.
func ProcessTransfers(schedules []core.Schedule, bins map[string]core.Bin, today core.Date) TransferResult {
	result := TransferResult{UpdatedBins: make(map[string]core.Bin)}

	for _, s := range schedules {
		if !IsDue(s.Rule, today) {
			continue
		}

		bin, staged := result.UpdatedBins[s.BinID]
		if !staged {
			var ok bool
			bin, ok = bins[s.BinID]
			if !ok {
				result.Report = append(result.Report, TransferOutcome{
					ScheduleID: s.ID,
					BinID:      s.BinID,
					Frequency:  s.Rule.Frequency,
					Err:        ErrBinNotFound,
				})
				continue
			}
		}

		amount := TransferAmount(s.MonthlyAllocation, s.Rule.Frequency)
		bin.CurrentAmount = bin.CurrentAmount.Add(amount)
		result.UpdatedBins[s.BinID] = bin

		result.Report = append(result.Report, TransferOutcome{
			ScheduleID:     s.ID,
			BinID:          s.BinID,
			BinName:        bin.Name,
			TransferAmount: amount,
			NewTotal:       bin.CurrentAmount,
			Frequency:      s.Rule.Frequency,
		})
	}

	return result
}
