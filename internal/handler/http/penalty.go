package http

import (
	"net/http"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/penalty"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PenaltyHandler interface {
	CalculateDaily(w http.ResponseWriter, r *http.Request)
	CalculateMonthly(w http.ResponseWriter, r *http.Request)
	Waive(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
}

type penaltyHandlerImpl struct {
	penaltyService penalty.PenaltyService
}

func NewPenaltyHandler(penaltyService penalty.PenaltyService) PenaltyHandler {
	return &penaltyHandlerImpl{penaltyService: penaltyService}
}

func (h *penaltyHandlerImpl) CalculateDaily(w http.ResponseWriter, r *http.Request) {
	var req penalty.CalculateDailyRequest
	if !decodeJSON(w, r, &req, "CalculateDaily") {
		return
	}

	result, err := h.penaltyService.CalculateDailyViolations(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *penaltyHandlerImpl) CalculateMonthly(w http.ResponseWriter, r *http.Request) {
	var req penalty.CalculateMonthlyRequest
	if !decodeJSON(w, r, &req, "CalculateMonthly") {
		return
	}

	result, err := h.penaltyService.CalculateMonthlyViolations(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *penaltyHandlerImpl) Waive(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req penalty.WaivePenaltyRequest
	if !decodeJSON(w, r, &req, "Waive") {
		return
	}
	req.PenaltyID = chi.URLParam(r, "id")
	req.WaivedBy = claims.UserID

	result, err := h.penaltyService.WaivePenalty(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Penalty waived", result)
}

func (h *penaltyHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.penaltyService.ListMyPenalties(r.Context(), claims.UserID, r.URL.Query().Get("month"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
