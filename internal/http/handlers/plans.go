package handlers

import (
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/Akshatoff/Alloc8/internal/plans"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

// PlansHandler serves the saved-plan archive.
type PlansHandler struct {
	store      plans.Store
	feed       plans.Feed
	logger     *logging.Logger
	defaultOrg string
}

// NewPlansHandler wires the archive endpoints. feed may be nil when the
// store has no change notifications; /plans/watch then returns 501.
func NewPlansHandler(store plans.Store, feed plans.Feed, logger *logging.Logger, defaultOrg string) *PlansHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PlansHandler{store: store, feed: feed, logger: logger, defaultOrg: defaultOrg}
}

type listPlansResponse struct {
	Plans []plans.SavedPlan `json:"plans"`
	Count int               `json:"count"`
}

// List handles GET /plans.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	org := orgID(r, h.defaultOrg)
	list, err := h.store.List(r.Context(), org)
	if err != nil {
		h.logger.Error("plans: list failed", "org_id", org, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list plans"})
		return
	}
	writeJSON(w, http.StatusOK, listPlansResponse{Plans: list, Count: len(list)})
}

type watchEvent struct {
	Type  string            `json:"type"`
	Plans []plans.SavedPlan `json:"plans,omitempty"`
	Error string            `json:"error,omitempty"`
}

// Watch handles GET /plans/watch: a WebSocket pushing the full plan list on
// connect and again after every save.
func (h *PlansHandler) Watch(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "live updates not available"})
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWatch(conn, r)
	}).ServeHTTP(w, r)
}

func (h *PlansHandler) serveWatch(conn *websocket.Conn, r *http.Request) {
	org := orgID(r, h.defaultOrg)
	if q := r.URL.Query().Get("org"); q != "" {
		org = q
	}

	ch, cancel, err := h.feed.Subscribe(r.Context(), org)
	if err != nil {
		h.logger.Error("plans: subscribe failed", "org_id", org, "error", err)
		_ = websocket.JSON.Send(conn, watchEvent{Type: "error", Error: "subscription failed"})
		return
	}
	defer cancel()

	h.logger.Info("plans: watcher connected", "org_id", org)

	// Reads are discarded; the socket is one-way. The read loop only exists
	// to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var discard string
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, watchEvent{Type: "plans", Plans: snapshot}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
