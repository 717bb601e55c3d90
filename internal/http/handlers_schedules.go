package http

import (
	"fmt"
	"net/http"

	"budget/internal/middleware/auth"
	"budget/internal/services"
)

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	views, err := s.budget.ListSchedules(r.Context(), auth.UserID(r.Context()), s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]scheduleResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toScheduleResponse(v.Schedule, v.NextOccurrence))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	today := s.today()
	sc, err := s.budget.CreateSchedule(r.Context(), auth.UserID(r.Context()), services.ScheduleInput{
		BinID:             sanitizeInput(req.BinID),
		Name:              sanitizeInput(req.Name),
		MonthlyAllocation: req.MonthlyAllocation,
		Frequency:         req.Frequency,
		CustomMonth:       req.CustomMonth,
		CustomDay:         req.CustomDay,
	}, today)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := toScheduleResponse(sc, nil)
	if d, ok := services.NextOccurrence(sc.Rule, today); ok {
		resp.NextOccurrence = &d
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.DeleteSchedule(r.Context(), auth.UserID(r.Context()), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteSchedulesByBin removes every schedule feeding ?binId=.
func (s *Server) handleDeleteSchedulesByBin(w http.ResponseWriter, r *http.Request) {
	binID := sanitizeInput(r.URL.Query().Get("binId"))
	if binID == "" {
		BadRequestError("binId is required").Write(w)
		return
	}
	n, err := s.budget.DeleteSchedulesByBin(r.Context(), auth.UserID(r.Context()), binID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: n})
}

// handleProcessSchedules runs the transfer batch for the caller only.
func (s *Server) handleProcessSchedules(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	run, err := s.transfers.ProcessUser(r.Context(), userID, s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.budget.Invalidate(userID)

	resp := processResponse{
		OK:                 true,
		ProcessedTransfers: []processedTransfer{},
		Errors:             []transferError{},
	}
	for _, o := range run.Persisted() {
		resp.ProcessedTransfers = append(resp.ProcessedTransfers, processedTransfer{
			ScheduleID:     o.ScheduleID,
			BinID:          o.BinID,
			BinName:        o.BinName,
			TransferAmount: o.TransferAmount,
			NewTotal:       o.NewTotal,
			Frequency:      o.Frequency,
		})
	}
	for _, o := range run.Result.Failures() {
		resp.Errors = append(resp.Errors, transferError{
			ScheduleID: o.ScheduleID,
			BinID:      o.BinID,
			Error:      o.Err.Error(),
		})
	}
	for _, f := range run.PersistFailures {
		resp.Errors = append(resp.Errors, transferError{
			BinID: f.BinID,
			Error: "failed to save bin balance",
		})
	}
	resp.Message = fmt.Sprintf("Processed %d transfers", len(resp.ProcessedTransfers))

	writeJSON(w, http.StatusOK, resp)
}
