package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/eventbank/internal/adapter/http/dto"
	"github.com/iho/eventbank/internal/domain"
	"github.com/iho/eventbank/internal/infrastructure/metrics"
	"github.com/iho/eventbank/internal/usecase"
)

// CommandService defines the behavior needed by CommandHandler.
type CommandService interface {
	Submit(ctx context.Context, cmd domain.Command) ([]domain.EventRecord, error)
}

// CommandHandler handles the write side: account commands.
type CommandHandler struct {
	dispatcher CommandService
	ids        usecase.IDGenerator
	metrics    *metrics.Metrics
}

// NewCommandHandler creates a new CommandHandler. metrics may be nil.
func NewCommandHandler(dispatcher CommandService, ids usecase.IDGenerator, m *metrics.Metrics) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher, ids: ids, metrics: m}
}

// Create opens a new account. Identity is assigned server-side.
func (h *CommandHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cmd := domain.CreateAccount{
		ID:             h.ids.Generate(),
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
	}

	records, err := h.submit(r.Context(), cmd)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create account", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.SubmitFromRecords(records))
}

// Credit deposits money into an account.
func (h *CommandHandler) Credit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	var req dto.CreditAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cmd := domain.CreditAccount{
		ID:       id,
		Currency: req.Currency,
		Amount:   req.Amount,
	}

	records, err := h.submit(r.Context(), cmd)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to credit account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SubmitFromRecords(records))
}

// Debit withdraws money from an account.
func (h *CommandHandler) Debit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	var req dto.DebitAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cmd := domain.DebitAccount{
		ID:       id,
		Currency: req.Currency,
		Amount:   req.Amount,
	}

	records, err := h.submit(r.Context(), cmd)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to debit account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SubmitFromRecords(records))
}

func (h *CommandHandler) submit(ctx context.Context, cmd domain.Command) ([]domain.EventRecord, error) {
	start := time.Now()
	records, err := h.dispatcher.Submit(ctx, cmd)

	if h.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		h.metrics.CommandsSubmitted.WithLabelValues(cmd.CommandType(), result).Inc()
		h.metrics.CommandDuration.WithLabelValues(cmd.CommandType()).Observe(time.Since(start).Seconds())
		h.metrics.EventsAppended.Add(float64(len(records)))
	}

	return records, err
}
