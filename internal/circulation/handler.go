// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"libralend/internal/access"
	"libralend/internal/lending"
	"libralend/internal/observability"
)

type Handler struct {
	board   *Board
	lending lending.Service
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewHandler creates the HTTP handler. metrics may be nil.
func NewHandler(board *Board, svc lending.Service, metrics *observability.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{board: board, lending: svc, metrics: metrics, logger: logger}
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	view, err := h.board.View(r.Context())
	if err != nil {
		h.logger.Error("catalog unavailable", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.board.Status(id))
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	before := h.lending.Lookup(id)
	h.lending.RequestIssue(r.Context(), id)

	result := "accepted"
	if before != lending.StatusAvailable {
		result = "absorbed"
	}
	h.metrics.ObserveCommand(CommandIssue, result)
	h.logCommand(r, CommandIssue, id, result)

	writeJSON(w, http.StatusAccepted, h.board.Status(id))
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := h.lending.RequestReturn(r.Context(), id); err != nil {
		if errors.Is(err, lending.ErrInvalidTransition) {
			h.metrics.ObserveCommand(CommandReturn, "rejected")
			h.logCommand(r, CommandReturn, id, "rejected")
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.metrics.ObserveCommand(CommandReturn, "error")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveCommand(CommandReturn, "accepted")
	h.logCommand(r, CommandReturn, id, "accepted")

	writeJSON(w, http.StatusOK, h.board.Status(id))
}

func (h *Handler) logCommand(r *http.Request, command, id, result string) {
	subject := "anonymous"
	if p, ok := access.PrincipalFrom(r.Context()); ok {
		subject = p.Subject
	}
	h.logger.Info("command handled",
		slog.String("command", command),
		slog.String("item", id),
		slog.String("result", result),
		slog.String("subject", subject),
	)
}

// itemID returns the decoded {id} parameter. chi matches on RawPath when
// the request carries one, and only then is the parameter still escaped.
func itemID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		var err error
		if id, err = url.PathUnescape(id); err != nil {
			id = ""
		}
	}
	if id == "" {
		http.Error(w, "invalid item ID", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
