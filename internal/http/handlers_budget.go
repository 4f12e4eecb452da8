package http

import (
	"fmt"
	"net/http"
	"strconv"

	"fleetbudget/internal/core"
	"fleetbudget/internal/log"
	"fleetbudget/internal/report"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetLimit(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Budget.Limit(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLimitResponse(l))
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	var req setLimitRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.svc.Budget.SetLimit(r.Context(), amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLimitResponse(l))
}

func (s *Server) handleCheckBudget(w http.ResponseWriter, r *http.Request) {
	period, err := s.periodParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Budget.CheckBudget(r.Context(), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{
		Period:     period.Key(),
		Notice:     string(res.Evaluation.Notice),
		OverBudget: res.Evaluation.OverBudget,
		Inserted:   res.Inserted,
		Alerts:     newAlertResponses(res.Evaluation.Alerts),
	})
}

func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	period, err := s.periodParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ov, err := s.svc.Budget.Overview(r.Context(), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSpendingResponse(ov))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	period, err := s.periodParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ov, err := s.svc.Budget.Overview(r.Context(), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	alerts, err := s.svc.Budget.ListAlerts(r.Context(), core.AlertFilter{Period: &period})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(period)))
	if err := report.Write(w, ov, alerts); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to write report", log.FieldPeriod, period.Key(), log.FieldError, err)
	}
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter core.AlertFilter
	if q.Get("period") != "" {
		period, err := s.periodParam(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.Period = &period
	}
	filter.VehicleID = core.VehicleID(q.Get("vehicle_id"))
	if v := q.Get("unacknowledged"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: unacknowledged must be a boolean", errBadRequest))
			return
		}
		filter.UnacknowledgedOnly = b
	}

	alerts, err := s.svc.Budget.ListAlerts(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAlertResponses(alerts))
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Budget.AcknowledgeAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAlertResponse(a))
}
