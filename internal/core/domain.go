package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Weekly     Frequency = "weekly"
	SemiWeekly Frequency = "semi-weekly"
	Monthly    Frequency = "monthly"
	Custom     Frequency = "custom"
)

const (
	OccurrenceMonthly   Occurrence = "monthly"
	OccurrenceBiMonthly Occurrence = "bi-monthly"
	OccurrenceAnnually  Occurrence = "annually"
)

const maxNameLength = 200

type (
	// Frequency is how often a schedule moves money into its bin.
	Frequency string

	// Occurrence is the billing period of a subscription.
	Occurrence string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// RecurrenceRule describes when a schedule fires. AnchorDate is the
	// schedule's creation date; CustomMonth and CustomDay are only read
	// for Custom rules and are zero when unset.
	RecurrenceRule struct {
		Frequency   Frequency
		AnchorDate  Date
		CustomMonth int
		CustomDay   int
	}

	Schedule struct {
		ID                string
		UserID            string
		BinID             string
		Name              string
		MonthlyAllocation Money
		Rule              RecurrenceRule
		CreatedAt         time.Time
	}

	// Bin is a named savings goal. CurrentAmount may exceed GoalAmount.
	Bin struct {
		ID                string
		UserID            string
		Name              string
		CurrentAmount     Money
		GoalAmount        Money
		MonthlyAllocation Money
		CreatedAt         time.Time
	}

	Subscription struct {
		ID              string
		UserID          string
		Name            string
		Amount          Money
		Occurrence      Occurrence
		StartDate       Date
		NextBillingDate Date
		LastPaidDate    *Date
		CreatedAt       time.Time
	}

	// Expense is a fixed monthly expense.
	Expense struct {
		ID        string
		UserID    string
		Name      string
		Amount    Money
		CreatedAt time.Time
	}

	Profile struct {
		UserID         string
		MonthlyIncome  Money
		TelegramChatID int64
	}
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrEmptyName         = errors.New("empty name")
	ErrNameTooLong       = errors.New("name too long (max 200 characters)")
	ErrEmptyBinID        = errors.New("empty bin id")
	ErrInvalidFrequency  = errors.New("invalid frequency")
	ErrInvalidRule       = errors.New("invalid recurrence rule")
	ErrInvalidOccurrence = errors.New("invalid occurrence")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, SemiWeekly, Monthly, Custom:
		return true
	}
	return false
}

// Valid reports whether o is one of the known billing occurrences.
func (o Occurrence) Valid() bool {
	switch o {
	case OccurrenceMonthly, OccurrenceBiMonthly, OccurrenceAnnually:
		return true
	}
	return false
}

// Validate requires a strictly positive amount.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateNonNegative accepts zero, used for balances and allocations.
func (m Money) ValidateNonNegative() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// Validate rejects rules that the recurrence calculator would treat as
// never due. Custom days up to 31 are accepted for every month and are
// clamped when the month is shorter.
func (r RecurrenceRule) Validate() error {
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if r.Frequency == Custom {
		if r.CustomMonth < 1 || r.CustomMonth > 12 {
			return errors.Join(ErrInvalidRule, ErrInvalidMonth)
		}
		if r.CustomDay < 1 || r.CustomDay > 31 {
			return errors.Join(ErrInvalidRule, ErrInvalidDay)
		}
		return nil
	}
	if err := r.AnchorDate.Validate(); err != nil {
		return errors.Join(ErrInvalidRule, err)
	}
	return nil
}

func (s Schedule) Validate() error {
	if strings.TrimSpace(s.BinID) == "" {
		return ErrEmptyBinID
	}
	if err := validateName(s.Name); err != nil {
		return err
	}
	if err := s.MonthlyAllocation.ValidateNonNegative(); err != nil {
		return err
	}
	return s.Rule.Validate()
}

func (b Bin) Validate() error {
	if err := validateName(b.Name); err != nil {
		return err
	}
	if err := b.CurrentAmount.ValidateNonNegative(); err != nil {
		return err
	}
	if err := b.GoalAmount.ValidateNonNegative(); err != nil {
		return err
	}
	return b.MonthlyAllocation.ValidateNonNegative()
}

// Progress returns how far the bin is toward its goal, in percent.
// It is not capped at 100.
func (b Bin) Progress() float64 {
	if b.GoalAmount.Cents <= 0 {
		return 0
	}
	return float64(b.CurrentAmount.Cents) / float64(b.GoalAmount.Cents) * 100
}

func (s Subscription) Validate() error {
	if err := validateName(s.Name); err != nil {
		return err
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if !s.Occurrence.Valid() {
		return ErrInvalidOccurrence
	}
	if err := s.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	return nil
}

func (e Expense) Validate() error {
	if err := validateName(e.Name); err != nil {
		return err
	}
	return e.Amount.Validate()
}

func (p Profile) Validate() error {
	return p.MonthlyIncome.ValidateNonNegative()
}
