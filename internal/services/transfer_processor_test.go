package services

import (
	"errors"
	"testing"

	"budget/internal/core"
)

func weeklySchedule(id, binID string, monthlyCents int64) core.Schedule {
	return core.Schedule{
		ID:                id,
		BinID:             binID,
		Name:              id,
		MonthlyAllocation: core.Money{Cents: monthlyCents},
		Rule:              core.RecurrenceRule{Frequency: core.Weekly, AnchorDate: wednesday},
	}
}

func TestTransferAmount(t *testing.T) {
	monthly := core.Money{Cents: 20000}
	tests := []struct {
		f    core.Frequency
		want int64
	}{
		{core.Weekly, 5000},
		{core.SemiWeekly, 10000},
		{core.Monthly, 20000},
		{core.Custom, 20000},
	}
	for _, tt := range tests {
		if got := TransferAmount(monthly, tt.f); got.Cents != tt.want {
			t.Errorf("TransferAmount(%s) = %d, want %d", tt.f, got.Cents, tt.want)
		}
	}
}

func TestProcessTransfers_WeeklyScenario(t *testing.T) {
	bins := map[string]core.Bin{
		"b1": {ID: "b1", Name: "Vacation", CurrentAmount: core.Money{Cents: 10000}},
	}
	schedules := []core.Schedule{weeklySchedule("s1", "b1", 20000)}

	res := ProcessTransfers(schedules, bins, wednesday)

	if len(res.Report) != 1 {
		t.Fatalf("expected 1 report entry, got %d", len(res.Report))
	}
	out := res.Report[0]
	if !out.Succeeded() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if out.TransferAmount.Cents != 5000 || out.NewTotal.Cents != 15000 {
		t.Errorf("amount=%d total=%d, want 5000/15000", out.TransferAmount.Cents, out.NewTotal.Cents)
	}
	if out.BinName != "Vacation" || out.Frequency != core.Weekly || out.ScheduleID != "s1" || out.BinID != "b1" {
		t.Errorf("unexpected outcome fields: %+v", out)
	}
	if got := res.UpdatedBins["b1"].CurrentAmount.Cents; got != 15000 {
		t.Errorf("updated bin = %d, want 15000", got)
	}
	if bins["b1"].CurrentAmount.Cents != 10000 {
		t.Errorf("input bins were mutated")
	}
}

func TestProcessTransfers_AccumulatesOnSameBin(t *testing.T) {
	bins := map[string]core.Bin{
		"b1": {ID: "b1", Name: "Car", CurrentAmount: core.Money{Cents: 1000}},
	}
	monthly := core.Schedule{
		ID:                "s2",
		BinID:             "b1",
		MonthlyAllocation: core.Money{Cents: 3000},
		Rule:              core.RecurrenceRule{Frequency: core.Monthly, AnchorDate: core.NewDate(2024, 1, 6)},
	}
	schedules := []core.Schedule{weeklySchedule("s1", "b1", 4000), monthly}

	res := ProcessTransfers(schedules, bins, wednesday)

	if len(res.UpdatedBins) != 1 {
		t.Fatalf("expected one updated bin, got %d", len(res.UpdatedBins))
	}
	if got := res.UpdatedBins["b1"].CurrentAmount.Cents; got != 1000+1000+3000 {
		t.Errorf("accumulated total = %d, want 5000", got)
	}
	if res.Report[0].NewTotal.Cents != 2000 || res.Report[1].NewTotal.Cents != 5000 {
		t.Errorf("running totals = %d, %d; want 2000, 5000", res.Report[0].NewTotal.Cents, res.Report[1].NewTotal.Cents)
	}
	if res.Transferred() != 2 {
		t.Errorf("Transferred() = %d, want 2", res.Transferred())
	}
}

func TestProcessTransfers_MissingBinIsIsolated(t *testing.T) {
	bins := map[string]core.Bin{
		"b1": {ID: "b1", Name: "One"},
		"b3": {ID: "b3", Name: "Three"},
	}
	schedules := []core.Schedule{
		weeklySchedule("s1", "b1", 400),
		weeklySchedule("s2", "gone", 400),
		weeklySchedule("s3", "b3", 400),
	}

	res := ProcessTransfers(schedules, bins, wednesday)

	if len(res.Report) != 3 {
		t.Fatalf("expected 3 report entries, got %d", len(res.Report))
	}
	if !res.Report[0].Succeeded() || !res.Report[2].Succeeded() {
		t.Errorf("other schedules should succeed: %+v", res.Report)
	}
	if !errors.Is(res.Report[1].Err, ErrBinNotFound) || res.Report[1].ScheduleID != "s2" {
		t.Errorf("expected bin missing for s2, got %+v", res.Report[1])
	}
	failures := res.Failures()
	if len(failures) != 1 || failures[0].ScheduleID != "s2" {
		t.Errorf("Failures() = %+v", failures)
	}
	if _, ok := res.UpdatedBins["gone"]; ok {
		t.Errorf("missing bin must not be staged")
	}
}

func TestProcessTransfers_NotDueProducesNoEntry(t *testing.T) {
	bins := map[string]core.Bin{"b1": {ID: "b1"}}
	schedules := []core.Schedule{
		weeklySchedule("s1", "b1", 400),
		{ID: "bad", BinID: "b1", Rule: core.RecurrenceRule{Frequency: core.Custom, CustomMonth: 13, CustomDay: 1}},
	}

	thursday := wednesday.AddDays(1)
	res := ProcessTransfers(schedules, bins, thursday)

	if len(res.Report) != 0 || len(res.UpdatedBins) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if res.Transferred() != 0 {
		t.Errorf("Transferred() = %d, want 0", res.Transferred())
	}
}

func TestProcessTransfers_RerunTransfersAgain(t *testing.T) {
	bins := map[string]core.Bin{"b1": {ID: "b1", CurrentAmount: core.Money{Cents: 100}}}
	schedules := []core.Schedule{weeklySchedule("s1", "b1", 400)}

	first := ProcessTransfers(schedules, bins, wednesday)
	second := ProcessTransfers(schedules, first.UpdatedBins, wednesday)

	if got := second.UpdatedBins["b1"].CurrentAmount.Cents; got != 300 {
		t.Errorf("second run total = %d, want 300", got)
	}
}
