package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/node-allocator/internal/allocator"
	"github.com/eugenenazirov/node-allocator/internal/metrics"
	"github.com/eugenenazirov/node-allocator/internal/output"
	"github.com/eugenenazirov/node-allocator/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const defaultMaxEntries = 100_000

// entryBytes is the request body budget per file or node entry.
const entryBytes = 256

// Handler wires the allocator and run storage into HTTP handlers.
type Handler struct {
	storage storage.Storage
	logger  *zap.Logger

	clock           func() time.Time
	maxEntries      int
	unassignedLabel string
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMaxEntries bounds the number of files plus nodes accepted per request.
// The request body is also limited to 256 bytes per allowed entry.
func WithMaxEntries(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxEntries = n
		}
	}
}

// WithUnassignedLabel sets the node name reported for unassigned files.
func WithUnassignedLabel(label string) HandlerOption {
	return func(h *Handler) {
		if label != "" {
			h.unassignedLabel = label
		}
	}
}

// WithHandlerLogger sets the logger passed to each allocation run.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		logger:  zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
		maxEntries:      defaultMaxEntries,
		unassignedLabel: output.DefaultUnassignedLabel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	limit := int64(h.maxEntries) * entryBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("request body exceeds %d bytes", limit),
				fmt.Sprintf("Send at most %d files and nodes per request", h.maxEntries))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if n := len(req.Items) + len(req.Nodes); n > h.maxEntries {
		writeError(w, http.StatusBadRequest, "Invalid request",
			fmt.Sprintf("request holds %d files and nodes, the limit is %d", n, h.maxEntries))
		return
	}

	alloc := allocator.New(allocator.WithLogger(h.logger))
	for _, n := range req.Nodes {
		if err := alloc.AddContainer(n.Name, n.Capacity); err != nil {
			writePopulationError(w, err)
			return
		}
	}
	for _, it := range req.Items {
		if err := alloc.AddItem(it.Name, it.Size); err != nil {
			writePopulationError(w, err)
			return
		}
	}

	start := time.Now()
	result, allocErr := alloc.Allocate()
	elapsed := time.Since(start)
	metrics.ObserveRun(result, allocErr, elapsed)

	if allocErr != nil {
		if errors.Is(allocErr, allocator.ErrNoContainers) {
			writeError(w, http.StatusUnprocessableEntity, "Cannot allocate", allocErr.Error(),
				fmt.Sprintf("Add at least one node to place the %d files", len(req.Items)))
			return
		}
		writeInternalError(w, allocErr)
		return
	}

	run := storage.Run{
		CreatedAt: h.clock(),
		Report:    output.NewReport(result, h.unassignedLabel),
	}
	id, err := h.storage.Save(run)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := allocateResponse{
		RunID:             id,
		CreatedAt:         run.CreatedAt,
		Report:            run.Report,
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, runsResponse{Runs: h.storage.List()})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := h.storage.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "Not found", fmt.Sprintf("no allocation run with id %q", id))
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writePopulationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, allocator.ErrInvalidName),
		errors.Is(err, allocator.ErrInvalidSize),
		errors.Is(err, allocator.ErrSizeOverflow),
		errors.Is(err, allocator.ErrInvalidCapacity),
		errors.Is(err, allocator.ErrDuplicateItem),
		errors.Is(err, allocator.ErrDuplicateContainer):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type itemPayload struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type nodePayload struct {
	Name     string `json:"name"`
	Capacity int64  `json:"capacity"`
}

type allocateRequest struct {
	Items []itemPayload `json:"items"`
	Nodes []nodePayload `json:"nodes"`
}

type allocateResponse struct {
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
	output.Report
	CalculationTimeMs int64 `json:"calculationTimeMs"`
}

type runsResponse struct {
	Runs []storage.RunSummary `json:"runs"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
