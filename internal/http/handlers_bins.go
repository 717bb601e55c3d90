package http

import (
	"net/http"

	"budget/internal/middleware/auth"
	"budget/internal/services"
)

func (s *Server) handleListBins(w http.ResponseWriter, r *http.Request) {
	bins, err := s.budget.ListBins(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]binResponse, 0, len(bins))
	for _, b := range bins {
		out = append(out, toBinResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBin(w http.ResponseWriter, r *http.Request) {
	var req binRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bin, err := s.budget.CreateBin(r.Context(), auth.UserID(r.Context()), services.BinInput{
		Name:              sanitizeInput(req.Name),
		CurrentAmount:     req.CurrentAmount,
		GoalAmount:        req.GoalAmount,
		MonthlyAllocation: req.MonthlyAllocation,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBinResponse(bin))
}

// handleUpdateBin covers manual deposits (currentAmount) as well as
// renames and allocation changes.
func (s *Server) handleUpdateBin(w http.ResponseWriter, r *http.Request) {
	var req binPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bin, err := s.budget.UpdateBin(r.Context(), auth.UserID(r.Context()), pathID(r), services.BinPatch{
		Name:              sanitizePtr(req.Name),
		CurrentAmount:     req.CurrentAmount,
		GoalAmount:        req.GoalAmount,
		MonthlyAllocation: req.MonthlyAllocation,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBinResponse(bin))
}

func (s *Server) handleDeleteBin(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.DeleteBin(r.Context(), auth.UserID(r.Context()), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
