// Package chat exposes the data-collection flow as a WebSocket conversation
// for the map UI, one session per connection.
package chat

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/Akshatoff/Alloc8/internal/gateway"
	"github.com/Akshatoff/Alloc8/internal/planner"
	"github.com/Akshatoff/Alloc8/internal/plans"
	"github.com/Akshatoff/Alloc8/internal/session"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

// PlanGenerator is the slice of the optimizer client the chat flow needs.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req planner.PlanRequest) (*planner.Plan, error)
}

// Handler upgrades to WebSocket and runs the conversation loop.
type Handler struct {
	sessions *session.Manager
	planner  PlanGenerator
	store    plans.Store
	tuning   planner.Tuning
	orgID    string
	logger   *logging.Logger
}

// InboundMessage is a client command.
type InboundMessage struct {
	Type     string            `json:"type"` // "report", "answer", "strategy", "plan", "load", "reset", "ping"
	Text     string            `json:"text,omitempty"`
	FormData map[string]string `json:"formData,omitempty"`
	Strategy string            `json:"strategy,omitempty"`
	PlanID   string            `json:"planId,omitempty"`
}

// OutboundMessage is a server event.
type OutboundMessage struct {
	Type      string                   `json:"type"` // "session", "analysis", "question", "summary", "ready", "plan", "error", "reset", "pong"
	SessionID string                   `json:"sessionId,omitempty"`
	Text      string                   `json:"text,omitempty"`
	Sources   []gateway.Source         `json:"sources,omitempty"`
	Question  string                   `json:"question,omitempty"`
	Needs     *planner.StructuredNeeds `json:"parsedNeeds,omitempty"`
	Degraded  bool                     `json:"degraded,omitempty"`
	Plan      *planner.Plan            `json:"plan,omitempty"`
	State     session.State            `json:"state,omitempty"`
}

// NewHandler builds the chat handler. store may be nil; the load command is
// then rejected.
func NewHandler(sessions *session.Manager, pg PlanGenerator, store plans.Store, tuning planner.Tuning, orgID string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sessions: sessions, planner: pg, store: store, tuning: tuning, orgID: orgID, logger: logger}
}

// ServeHTTP upgrades the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serve(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serve(conn *websocket.Conn, r *http.Request) {
	id, ctrl := h.sessions.Create()
	defer h.sessions.Remove(id)

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: id, State: ctrl.State()})
	h.logger.Info("chat: connection opened", "session_id", id)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("chat: connection closed", "session_id", id, "error", err)
			return
		}
		h.dispatch(r.Context(), conn, ctrl, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *websocket.Conn, ctrl *session.Controller, msg InboundMessage) {
	switch msg.Type {
	case "ping":
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
	case "report":
		h.handleReport(ctx, conn, ctrl, msg)
	case "answer":
		h.handleAnswer(ctx, conn, ctrl, msg)
	case "strategy":
		h.handleStrategy(conn, ctrl, msg)
	case "plan":
		h.handlePlan(ctx, conn, ctrl)
	case "load":
		h.handleLoad(ctx, conn, ctrl, msg)
	case "reset":
		ctrl.StartOver()
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "reset", State: ctrl.State()})
	default:
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "unknown message type"})
	}
}

func (h *Handler) handleReport(ctx context.Context, conn *websocket.Conn, ctrl *session.Controller, msg InboundMessage) {
	res, err := ctrl.SubmitInitialReport(ctx, msg.Text, msg.FormData)
	if err != nil {
		h.sendError(conn, ctrl, err)
		return
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:    "analysis",
		Text:    res.Augmented,
		Sources: res.Sources,
		State:   res.State,
	})
	if res.NextQuestion != "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "question", Question: res.NextQuestion, State: res.State})
		return
	}
	h.sendSummary(conn, res.Summary, res.Needs, res.NeedsDegraded, res.State)
}

func (h *Handler) handleAnswer(ctx context.Context, conn *websocket.Conn, ctrl *session.Controller, msg InboundMessage) {
	res, err := ctrl.SubmitAnswer(ctx, msg.Text)
	if err != nil {
		h.sendError(conn, ctrl, err)
		return
	}
	if !res.Done {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "question", Question: res.NextQuestion, State: res.State})
		return
	}
	h.sendSummary(conn, res.Summary, res.Needs, res.NeedsDegraded, res.State)
}

func (h *Handler) handleStrategy(conn *websocket.Conn, ctrl *session.Controller, msg InboundMessage) {
	value := msg.Strategy
	if value == "" {
		value = msg.Text
	}
	if _, err := ctrl.SelectStrategy(value); err != nil {
		h.sendError(conn, ctrl, err)
		return
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "ready", State: ctrl.State()})
}

func (h *Handler) handlePlan(ctx context.Context, conn *websocket.Conn, ctrl *session.Controller) {
	req, err := ctrl.PlanRequest(h.tuning)
	if err != nil {
		h.sendError(conn, ctrl, err)
		return
	}
	plan, err := h.planner.GeneratePlan(ctx, req)
	if err != nil {
		h.sendError(conn, ctrl, err)
		return
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "plan", Plan: plan, State: ctrl.State()})
}

// handleLoad restores a saved plan for display; the session becomes terminal
// so the client can regenerate with a different strategy if desired.
func (h *Handler) handleLoad(ctx context.Context, conn *websocket.Conn, ctrl *session.Controller, msg InboundMessage) {
	if h.store == nil || msg.PlanID == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "plan loading not available"})
		return
	}
	list, err := h.store.List(ctx, h.orgID)
	if err != nil {
		h.logger.Error("chat: plan load failed", "error", err)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "failed to load saved plans"})
		return
	}
	for _, saved := range list {
		if saved.ID == msg.PlanID {
			ctrl.AdoptRecord(saved.Record)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "plan", Plan: &saved.Plan, State: ctrl.State()})
			return
		}
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "plan not found"})
}

func (h *Handler) sendSummary(conn *websocket.Conn, summary string, needs *planner.StructuredNeeds, degraded bool, state session.State) {
	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:     "summary",
		Text:     summary,
		Needs:    needs,
		Degraded: degraded,
		State:    state,
	})
}

func (h *Handler) sendError(conn *websocket.Conn, ctrl *session.Controller, err error) {
	text := err.Error()
	if gateway.IsTerminal(err) {
		text = "The analysis service is unavailable right now. Please try again."
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:  "error",
		Text:  strings.TrimSpace(text),
		State: ctrl.State(),
	})
}
