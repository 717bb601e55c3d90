// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurrence rules. Each
// frequency has one strategy that answers both "does it fire today?" and
// "when does it fire next?", so the two views can never disagree.

package services

import (
	"fmt"
	"time"

	"budget/internal/core"
)

// RecurrenceStrategy is the strategy interface for one schedule frequency.
// Implementations must not panic on malformed rules; they report such rules
// as never due and without a next occurrence.
type RecurrenceStrategy interface {
	// IsDue reports whether today is a firing date of the rule.
	IsDue(rule core.RecurrenceRule, today core.Date) bool
	// Next returns the first firing date strictly after today.
	Next(rule core.RecurrenceRule, today core.Date) (core.Date, bool)
}

// WeeklyStrategy fires on the anchor's day of the week.
type WeeklyStrategy struct{}

func (WeeklyStrategy) IsDue(rule core.RecurrenceRule, today core.Date) bool {
	if rule.AnchorDate.IsZero() {
		return false
	}
	return today.Weekday() == rule.AnchorDate.Weekday()
}

func (WeeklyStrategy) Next(rule core.RecurrenceRule, today core.Date) (core.Date, bool) {
	if rule.AnchorDate.IsZero() {
		return core.Date{}, false
	}
	ahead := (int(rule.AnchorDate.Weekday()) - int(today.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return today.AddDays(ahead), true
}

// SemiWeeklyStrategy fires on the anchor's weekday every other week,
// counting whole weeks from the anchor.
type SemiWeeklyStrategy struct{}

func (SemiWeeklyStrategy) IsDue(rule core.RecurrenceRule, today core.Date) bool {
	if rule.AnchorDate.IsZero() {
		return false
	}
	if today.Weekday() != rule.AnchorDate.Weekday() {
		return false
	}
	weeks := floorDiv(core.DaysBetween(rule.AnchorDate, today), 7)
	return floorMod(weeks, 2) == 0
}

func (s SemiWeeklyStrategy) Next(rule core.RecurrenceRule, today core.Date) (core.Date, bool) {
	weekly, ok := WeeklyStrategy{}.Next(rule, today)
	if !ok {
		return core.Date{}, false
	}
	if s.IsDue(rule, weekly) {
		return weekly, true
	}
	return weekly.AddDays(7), true
}

// MonthlyStrategy fires on the anchor's day of month, clamped to the last
// day of shorter months.
type MonthlyStrategy struct{}

func (MonthlyStrategy) IsDue(rule core.RecurrenceRule, today core.Date) bool {
	if rule.AnchorDate.IsZero() {
		return false
	}
	target := core.ClampedDate(today.Year(), time.Month(today.Month()), rule.AnchorDate.Day())
	return today.SameDay(target)
}

func (MonthlyStrategy) Next(rule core.RecurrenceRule, today core.Date) (core.Date, bool) {
	if rule.AnchorDate.IsZero() {
		return core.Date{}, false
	}
	day := rule.AnchorDate.Day()
	candidate := core.ClampedDate(today.Year(), time.Month(today.Month()), day)
	if !candidate.IsAfter(today) {
		candidate = core.ClampedDate(today.Year(), time.Month(today.Month()+1), day)
	}
	return candidate, true
}

// CustomStrategy fires once a year on CustomMonth/CustomDay, clamped to the
// month's last day (Feb 30 fires on Feb 28 or 29).
type CustomStrategy struct{}

func customValid(rule core.RecurrenceRule) bool {
	return rule.CustomMonth >= 1 && rule.CustomMonth <= 12 &&
		rule.CustomDay >= 1 && rule.CustomDay <= 31
}

func (CustomStrategy) IsDue(rule core.RecurrenceRule, today core.Date) bool {
	if !customValid(rule) {
		return false
	}
	target := core.ClampedDate(today.Year(), time.Month(rule.CustomMonth), rule.CustomDay)
	return today.SameDay(target)
}

func (CustomStrategy) Next(rule core.RecurrenceRule, today core.Date) (core.Date, bool) {
	if !customValid(rule) {
		return core.Date{}, false
	}
	candidate := core.ClampedDate(today.Year(), time.Month(rule.CustomMonth), rule.CustomDay)
	if !candidate.IsAfter(today) {
		candidate = core.ClampedDate(today.Year()+1, time.Month(rule.CustomMonth), rule.CustomDay)
	}
	return candidate, true
}

// recurrenceStrategies maps frequencies to their strategies.
var recurrenceStrategies = map[core.Frequency]RecurrenceStrategy{
	core.Weekly:     WeeklyStrategy{},
	core.SemiWeekly: SemiWeeklyStrategy{},
	core.Monthly:    MonthlyStrategy{},
	core.Custom:     CustomStrategy{},
}

// GetRecurrenceStrategy returns the strategy for a frequency.
// Returns an error if the frequency is not supported.
func GetRecurrenceStrategy(frequency core.Frequency) (RecurrenceStrategy, error) {
	strategy, ok := recurrenceStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, frequency)
	}
	return strategy, nil
}

// RegisterRecurrenceStrategy registers a strategy for a new frequency.
// It is meant to be called from init functions only.
func RegisterRecurrenceStrategy(frequency core.Frequency, strategy RecurrenceStrategy) {
	recurrenceStrategies[frequency] = strategy
}

// IsDue reports whether the rule fires on today. Unknown frequencies and
// malformed rules are never due.
func IsDue(rule core.RecurrenceRule, today core.Date) bool {
	strategy, err := GetRecurrenceStrategy(rule.Frequency)
	if err != nil {
		return false
	}
	return strategy.IsDue(rule, today)
}

// NextOccurrence returns the first firing date strictly after today, or
// false when the rule has none.
func NextOccurrence(rule core.RecurrenceRule, today core.Date) (core.Date, bool) {
	strategy, err := GetRecurrenceStrategy(rule.Frequency)
	if err != nil {
		return core.Date{}, false
	}
	return strategy.Next(rule, today)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
