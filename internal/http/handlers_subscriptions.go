package http

import (
	"net/http"

	"budget/internal/middleware/auth"
	"budget/internal/services"
)

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	views, err := s.budget.ListSubscriptions(r.Context(), auth.UserID(r.Context()), s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]subscriptionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toSubscriptionResponse(v.Subscription, v.Status))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	startDate := req.StartDate
	if startDate.IsEmpty() {
		startDate = s.today()
	}
	sub, err := s.budget.CreateSubscription(r.Context(), auth.UserID(r.Context()), services.SubscriptionInput{
		Name:       sanitizeInput(req.Name),
		Amount:     req.Amount,
		Occurrence: req.Occurrence,
		StartDate:  startDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub, services.SubscriptionStatus(sub, s.today())))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.DeleteSubscription(r.Context(), auth.UserID(r.Context()), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePaySubscription(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	sub, err := s.subscriptions.MarkPaid(r.Context(), auth.UserID(r.Context()), pathID(r), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, services.SubscriptionStatus(sub, today)))
}

func (s *Server) handleUndoPayment(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subscriptions.UndoPayment(r.Context(), auth.UserID(r.Context()), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, services.SubscriptionStatus(sub, s.today())))
}
