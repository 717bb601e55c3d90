package http

import (
	"time"

	"budget/internal/core"
	"budget/internal/services"
)

// Request and response bodies. Money is encoded as a number in currency
// units and dates as YYYY-MM-DD.

type binRequest struct {
	Name              string     `json:"name"`
	CurrentAmount     core.Money `json:"currentAmount"`
	GoalAmount        core.Money `json:"goalAmount"`
	MonthlyAllocation core.Money `json:"monthlyAllocation"`
}

type binPatchRequest struct {
	Name              *string     `json:"name"`
	CurrentAmount     *core.Money `json:"currentAmount"`
	GoalAmount        *core.Money `json:"goalAmount"`
	MonthlyAllocation *core.Money `json:"monthlyAllocation"`
}

type binResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	CurrentAmount     core.Money `json:"currentAmount"`
	GoalAmount        core.Money `json:"goalAmount"`
	MonthlyAllocation core.Money `json:"monthlyAllocation"`
	Progress          float64    `json:"progress"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toBinResponse(b core.Bin) binResponse {
	return binResponse{
		ID:                b.ID,
		Name:              b.Name,
		CurrentAmount:     b.CurrentAmount,
		GoalAmount:        b.GoalAmount,
		MonthlyAllocation: b.MonthlyAllocation,
		Progress:          b.Progress(),
		CreatedAt:         b.CreatedAt,
	}
}

type scheduleRequest struct {
	BinID             string         `json:"binId"`
	Name              string         `json:"name"`
	MonthlyAllocation core.Money     `json:"monthlyAllocation"`
	Frequency         core.Frequency `json:"frequency"`
	CustomMonth       int            `json:"customMonth"`
	CustomDay         int            `json:"customDay"`
}

type scheduleResponse struct {
	ID                string         `json:"id"`
	BinID             string         `json:"binId"`
	Name              string         `json:"name"`
	MonthlyAllocation core.Money     `json:"monthlyAllocation"`
	Frequency         core.Frequency `json:"frequency"`
	AnchorDate        core.Date      `json:"anchorDate"`
	CustomMonth       int            `json:"customMonth,omitempty"`
	CustomDay         int            `json:"customDay,omitempty"`
	NextOccurrence    *core.Date     `json:"nextOccurrence"`
	CreatedAt         time.Time      `json:"createdAt"`
}

func toScheduleResponse(s core.Schedule, next *core.Date) scheduleResponse {
	return scheduleResponse{
		ID:                s.ID,
		BinID:             s.BinID,
		Name:              s.Name,
		MonthlyAllocation: s.MonthlyAllocation,
		Frequency:         s.Rule.Frequency,
		AnchorDate:        s.Rule.AnchorDate,
		CustomMonth:       s.Rule.CustomMonth,
		CustomDay:         s.Rule.CustomDay,
		NextOccurrence:    next,
		CreatedAt:         s.CreatedAt,
	}
}

type subscriptionRequest struct {
	Name       string          `json:"name"`
	Amount     core.Money      `json:"amount"`
	Occurrence core.Occurrence `json:"occurrence"`
	StartDate  core.Date       `json:"startDate"`
}

type subscriptionResponse struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Amount          core.Money             `json:"amount"`
	Occurrence      core.Occurrence        `json:"occurrence"`
	StartDate       core.Date              `json:"startDate"`
	NextBillingDate core.Date              `json:"nextBillingDate"`
	LastPaidDate    *core.Date             `json:"lastPaidDate"`
	Status          services.PaymentStatus `json:"status,omitempty"`
	MonthlyCost     core.Money             `json:"monthlyCost"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func toSubscriptionResponse(s core.Subscription, status services.PaymentStatus) subscriptionResponse {
	return subscriptionResponse{
		ID:              s.ID,
		Name:            s.Name,
		Amount:          s.Amount,
		Occurrence:      s.Occurrence,
		StartDate:       s.StartDate,
		NextBillingDate: s.NextBillingDate,
		LastPaidDate:    s.LastPaidDate,
		Status:          status,
		MonthlyCost:     core.MonthlyEquivalent(s.Amount, s.Occurrence),
		CreatedAt:       s.CreatedAt,
	}
}

type expenseRequest struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

type expensePatchRequest struct {
	Name   *string     `json:"name"`
	Amount *core.Money `json:"amount"`
}

type expenseResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Amount    core.Money `json:"amount"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{ID: e.ID, Name: e.Name, Amount: e.Amount, CreatedAt: e.CreatedAt}
}

type profileRequest struct {
	MonthlyIncome  core.Money `json:"monthlyIncome"`
	TelegramChatID int64      `json:"telegramChatId"`
}

type profileResponse struct {
	MonthlyIncome  core.Money `json:"monthlyIncome"`
	TelegramChatID int64      `json:"telegramChatId,omitempty"`
}

type summaryResponse struct {
	MonthlyIncome      core.Money `json:"monthlyIncome"`
	TotalExpenses      core.Money `json:"totalExpenses"`
	TotalSubscriptions core.Money `json:"totalSubscriptions"`
	TotalSavings       core.Money `json:"totalSavings"`
	AfterExpenses      core.Money `json:"afterExpenses"`
	AfterSubscriptions core.Money `json:"afterSubscriptions"`
	RemainingBalance   core.Money `json:"remainingBalance"`
}

type processedTransfer struct {
	ScheduleID     string         `json:"scheduleId"`
	BinID          string         `json:"binId"`
	BinName        string         `json:"binName"`
	TransferAmount core.Money     `json:"transferAmount"`
	NewTotal       core.Money     `json:"newTotal"`
	Frequency      core.Frequency `json:"frequency"`
}

type transferError struct {
	ScheduleID string `json:"scheduleId,omitempty"`
	BinID      string `json:"binId"`
	Error      string `json:"error"`
}

type processResponse struct {
	OK                 bool                `json:"ok"`
	ProcessedTransfers []processedTransfer `json:"processedTransfers"`
	Errors             []transferError     `json:"errors"`
	Message            string              `json:"message"`
}

type deletedResponse struct {
	Deleted int `json:"deleted"`
}
