package http

import (
	"net/http"

	"budget/internal/core"
	"budget/internal/middleware/auth"
	"budget/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.budget.ListExpenses(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.budget.CreateExpense(r.Context(), auth.UserID(r.Context()), sanitizeInput(req.Name), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expensePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.budget.UpdateExpense(r.Context(), auth.UserID(r.Context()), pathID(r), services.ExpensePatch{
		Name:   sanitizePtr(req.Name),
		Amount: req.Amount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.DeleteExpense(r.Context(), auth.UserID(r.Context()), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.budget.GetProfile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{MonthlyIncome: p.MonthlyIncome, TelegramChatID: p.TelegramChatID})
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.budget.UpsertProfile(r.Context(), core.Profile{
		UserID:         auth.UserID(r.Context()),
		MonthlyIncome:  req.MonthlyIncome,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{MonthlyIncome: p.MonthlyIncome, TelegramChatID: p.TelegramChatID})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.budget.Summary(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		MonthlyIncome:      sum.MonthlyIncome,
		TotalExpenses:      sum.TotalExpenses,
		TotalSubscriptions: sum.TotalSubscriptions,
		TotalSavings:       sum.TotalSavings,
		AfterExpenses:      sum.AfterExpenses,
		AfterSubscriptions: sum.AfterSubscriptions,
		RemainingBalance:   sum.RemainingBalance,
	})
}
