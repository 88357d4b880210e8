package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/eventbank/internal/adapter/http/dto"
	"github.com/iho/eventbank/internal/domain"
)

// QueryService defines the read-model access needed by QueryHandler.
type QueryService interface {
	Get(ctx context.Context, accountID string) (*domain.AccountRecord, error)
	ListOperations(ctx context.Context, accountID string, limit, offset int) ([]*domain.Operation, error)
}

// EventLogService defines the event-log access needed by QueryHandler.
type EventLogService interface {
	ReadFrom(ctx context.Context, accountID string, fromSequence int64) ([]domain.EventRecord, error)
}

// QueryHandler handles the read side: account summaries, operations history
// and the raw event log.
type QueryHandler struct {
	readModel QueryService
	events    EventLogService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(readModel QueryService, events EventLogService) *QueryHandler {
	return &QueryHandler{readModel: readModel, events: events}
}

// Get returns the read-model summary of an account. The summary is eventually
// consistent with the event log.
func (h *QueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	record, err := h.readModel.Get(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromRecord(record))
}

// ListEvents returns an account's committed event history, optionally starting
// from a given sequence via the "from" query parameter.
func (h *QueryHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	from := parseInt64Query(r, "from", 1)

	records, err := h.events.ReadFrom(r.Context(), id, from)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEventsResponse{
		Events: dto.EventsFromRecords(records),
		Total:  int64(len(records)),
	})
}

// ListOperations returns an account's credit/debit history.
func (h *QueryHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	ops, err := h.readModel.ListOperations(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list operations", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListOperationsResponse{
		Operations: dto.OperationsFromDomain(ops),
		Total:      int64(len(ops)),
	})
}
