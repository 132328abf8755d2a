package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/apperrors"
	"github.com/queryloop-ai/queryloop-engine/pkg/text2sql"
)

// AskRequest is the POST /api/ask body.
type AskRequest struct {
	Question string `json:"question"`

	// Execute controls whether validated SQL is run against the database.
	// Defaults to true when omitted.
	Execute *bool `json:"execute,omitempty"`

	// MaxRows overrides the preview row cap for this request.
	MaxRows int `json:"max_rows,omitempty"`

	// TopK overrides the metadata retrieval depth for this request.
	TopK int `json:"top_k,omitempty"`

	// Stream requests NDJSON status streaming instead of a single JSON
	// response.
	Stream bool `json:"stream,omitempty"`
}

// AskResponse is the non-streaming response shape: the terminal turn
// result plus the status events that occurred along the way.
type AskResponse struct {
	*text2sql.TurnResult
	Events []text2sql.Event `json:"events"`
}

// streamLine is one NDJSON line: exactly one of the fields is set.
type streamLine struct {
	Event  *text2sql.Event      `json:"event,omitempty"`
	Result *text2sql.TurnResult `json:"result,omitempty"`
}

// AskHandler serves natural-language question turns.
type AskHandler struct {
	controller *text2sql.Controller
	logger     *zap.Logger
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(controller *text2sql.Controller, logger *zap.Logger) *AskHandler {
	return &AskHandler{controller: controller, logger: logger}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/ask", h.Ask)
}

// Ask handles POST /api/ask requests. With "stream": true the response is
// NDJSON: one line per status event as it happens, then a final line
// carrying the terminal result. Otherwise events are buffered and returned
// alongside the result in a single JSON document.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	opts := text2sql.TurnOptions{
		Execute: req.Execute == nil || *req.Execute,
		MaxRows: req.MaxRows,
		TopK:    req.TopK,
	}

	if req.Stream {
		h.askStreaming(w, r, req.Question, opts)
		return
	}

	var events []text2sql.Event
	result, err := h.controller.Ask(r.Context(), req.Question, opts, func(ev text2sql.Event) {
		events = append(events, ev)
	})
	if err != nil {
		h.writeTurnError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, AskResponse{TurnResult: result, Events: events}); err != nil {
		h.logger.Error("Failed to encode ask response", zap.Error(err))
	}
}

func (h *AskHandler) askStreaming(w http.ResponseWriter, r *http.Request, question string, opts text2sql.TurnOptions) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = ErrorResponse(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	enc := json.NewEncoder(w)

	wroteAny := false
	result, err := h.controller.Ask(r.Context(), question, opts, func(ev text2sql.Event) {
		e := ev
		if encErr := enc.Encode(streamLine{Event: &e}); encErr != nil {
			h.logger.Debug("stream write failed, client likely gone", zap.Error(encErr))
			return
		}
		wroteAny = true
		flusher.Flush()
	})
	if err != nil {
		// Headers may already be out; fall back to a plain error response
		// only when nothing has been written yet.
		if !wroteAny {
			h.writeTurnError(w, err)
			return
		}
		h.logger.Warn("streaming turn aborted", zap.Error(err))
		return
	}

	if encErr := enc.Encode(streamLine{Result: result}); encErr != nil {
		h.logger.Debug("stream result write failed", zap.Error(encErr))
		return
	}
	flusher.Flush()
}

func (h *AskHandler) writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrEmptyQuestion):
		_ = ErrorResponse(w, http.StatusBadRequest, "empty_question", "question must not be empty")
	case errors.Is(err, apperrors.ErrTurnSuperseded):
		_ = ErrorResponse(w, http.StatusConflict, "turn_superseded", "a newer question superseded this turn")
	default:
		h.logger.Error("turn failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "turn processing failed")
	}
}
