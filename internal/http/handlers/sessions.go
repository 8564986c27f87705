// Package handlers exposes the crisis-response flow over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Akshatoff/Alloc8/internal/gateway"
	"github.com/Akshatoff/Alloc8/internal/planner"
	"github.com/Akshatoff/Alloc8/internal/plans"
	"github.com/Akshatoff/Alloc8/internal/session"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

// PlanGenerator is the slice of the optimizer client the handler needs.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req planner.PlanRequest) (*planner.Plan, error)
}

// SessionsHandler serves the conversational data-collection flow.
type SessionsHandler struct {
	sessions   *session.Manager
	planner    PlanGenerator
	store      plans.Store
	logger     *logging.Logger
	tuning     planner.Tuning
	defaultOrg string
}

// NewSessionsHandler wires the session endpoints.
func NewSessionsHandler(sessions *session.Manager, pg PlanGenerator, store plans.Store, logger *logging.Logger, tuning planner.Tuning, defaultOrg string) *SessionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionsHandler{
		sessions:   sessions,
		planner:    pg,
		store:      store,
		logger:     logger,
		tuning:     tuning,
		defaultOrg: defaultOrg,
	}
}

func orgID(r *http.Request, fallback string) string {
	if org := strings.TrimSpace(r.Header.Get("X-Org-Id")); org != "" {
		return org
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *SessionsHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrEmptyDescription),
		errors.Is(err, session.ErrEmptyAnswer),
		errors.Is(err, planner.ErrUnknownStrategy):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidState),
		errors.Is(err, session.ErrSessionReset):
		status = http.StatusConflict
	case gateway.IsTerminal(err):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("handler: request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *SessionsHandler) controller(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	ctrl, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return ctrl, true
}

type createSessionResponse struct {
	SessionID string        `json:"sessionId"`
	State     session.State `json:"state"`
}

// Create handles POST /sessions.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ctrl := h.sessions.Create()
	h.logger.Info("session created", "session_id", id)
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id, State: ctrl.State()})
}

type sessionStateResponse struct {
	State           session.State  `json:"state"`
	CurrentQuestion string         `json:"currentQuestion,omitempty"`
	Record          session.Record `json:"record"`
}

// Get handles GET /sessions/{sessionID}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	resp := sessionStateResponse{State: ctrl.State(), Record: ctrl.Record()}
	if q, pending := ctrl.CurrentQuestion(); pending {
		resp.CurrentQuestion = q
	}
	writeJSON(w, http.StatusOK, resp)
}

type reportRequest struct {
	Description string            `json:"description"`
	FormData    map[string]string `json:"formData,omitempty"`
}

// Report handles POST /sessions/{sessionID}/report.
func (h *SessionsHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	res, err := ctrl.SubmitInitialReport(r.Context(), req.Description, req.FormData)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// Answer handles POST /sessions/{sessionID}/answer.
func (h *SessionsHandler) Answer(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	res, err := ctrl.SubmitAnswer(r.Context(), req.Answer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type strategyRequest struct {
	Strategy string `json:"strategy"`
}

type strategyResponse struct {
	Strategy planner.Strategy `json:"strategy"`
	State    session.State    `json:"state"`
}

// Strategy handles POST /sessions/{sessionID}/strategy.
func (h *SessionsHandler) Strategy(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	strategy, err := ctrl.SelectStrategy(req.Strategy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategyResponse{Strategy: strategy, State: ctrl.State()})
}

// Plan handles POST /sessions/{sessionID}/plan. Failures surface verbatim so
// the user can retry, possibly with another strategy.
func (h *SessionsHandler) Plan(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	req, err := ctrl.PlanRequest(h.tuning)
	if err != nil {
		h.writeError(w, err)
		return
	}
	plan, err := h.planner.GeneratePlan(r.Context(), req)
	if err != nil {
		h.logger.Error("plan generation failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type saveRequest struct {
	Author string       `json:"author,omitempty"`
	Plan   planner.Plan `json:"plan"`
}

// Save handles POST /sessions/{sessionID}/save. The plan travels back from
// the client because plan generation itself is stateless.
func (h *SessionsHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	saved := &plans.SavedPlan{
		OrgID:  orgID(r, h.defaultOrg),
		Author: req.Author,
		Plan:   req.Plan,
		Record: ctrl.Record(),
	}
	if err := h.store.Save(r.Context(), saved); err != nil {
		if errors.Is(err, plans.ErrInvalidPlan) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("plan save failed", "org_id", saved.OrgID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to persist plan"})
		return
	}
	h.logger.Info("plan saved", "plan_id", saved.ID, "org_id", saved.OrgID)
	writeJSON(w, http.StatusCreated, saved)
}

type loadRequest struct {
	PlanID string `json:"planId"`
}

type loadResponse struct {
	Plan  plans.SavedPlan `json:"plan"`
	State session.State   `json:"state"`
}

// Load handles POST /sessions/{sessionID}/load: restores a saved plan's
// session record for display, leaving the session in the completed state.
func (h *SessionsHandler) Load(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "planId is required"})
		return
	}
	org := orgID(r, h.defaultOrg)
	list, err := h.store.List(r.Context(), org)
	if err != nil {
		h.logger.Error("plan load failed", "org_id", org, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to load plans"})
		return
	}
	for _, saved := range list {
		if saved.ID == req.PlanID {
			ctrl.AdoptRecord(saved.Record)
			writeJSON(w, http.StatusOK, loadResponse{Plan: saved, State: ctrl.State()})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "plan not found"})
}

// Reset handles POST /sessions/{sessionID}/reset.
func (h *SessionsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctrl.StartOver()
	writeJSON(w, http.StatusOK, map[string]session.State{"state": ctrl.State()})
}

// Delete handles DELETE /sessions/{sessionID}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.sessions.Remove(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}
