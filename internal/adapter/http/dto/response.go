package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/eventbank/internal/domain"
)

// SubmitResponse reports the outcome of an accepted command: the account it
// targeted and the sequence of the last committed event. The read model may
// lag behind this sequence; the event log is the source of truth.
type SubmitResponse struct {
	AccountID string `json:"account_id"`
	Sequence  int64  `json:"sequence"`
}

// SubmitFromRecords builds a SubmitResponse from the committed records.
func SubmitFromRecords(records []domain.EventRecord) *SubmitResponse {
	last := records[len(records)-1]
	return &SubmitResponse{
		AccountID: last.AccountID,
		Sequence:  last.Sequence,
	}
}

// AccountResponse represents the read-model summary of an account.
type AccountResponse struct {
	ID           string          `json:"id"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
	LastSequence int64           `json:"last_sequence"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// AccountFromRecord converts a read-model record to a response.
func AccountFromRecord(r *domain.AccountRecord) *AccountResponse {
	return &AccountResponse{
		ID:           r.ID,
		Balance:      r.Balance,
		Currency:     r.Currency,
		Status:       string(r.Status),
		LastSequence: r.LastSequence,
		UpdatedAt:    r.UpdatedAt,
	}
}

// EventResponse represents one committed event record.
type EventResponse struct {
	AccountID  string    `json:"account_id"`
	Sequence   int64     `json:"sequence"`
	EventType  string    `json:"event_type"`
	Payload    any       `json:"payload"`
	RecordedAt time.Time `json:"recorded_at"`
}

// EventsFromRecords converts committed records to responses.
func EventsFromRecords(records []domain.EventRecord) []*EventResponse {
	result := make([]*EventResponse, len(records))
	for i, rec := range records {
		result[i] = &EventResponse{
			AccountID:  rec.AccountID,
			Sequence:   rec.Sequence,
			EventType:  rec.EventType,
			Payload:    rec.Event,
			RecordedAt: rec.RecordedAt,
		}
	}
	return result
}

// ListEventsResponse wraps an account's event history.
type ListEventsResponse struct {
	Events []*EventResponse `json:"events"`
	Total  int64            `json:"total"`
}

// OperationResponse represents one credit or debit in the history.
type OperationResponse struct {
	Sequence   int64           `json:"sequence"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// OperationsFromDomain converts operations to responses.
func OperationsFromDomain(ops []*domain.Operation) []*OperationResponse {
	result := make([]*OperationResponse, len(ops))
	for i, op := range ops {
		result[i] = &OperationResponse{
			Sequence:   op.Sequence,
			Type:       op.Type,
			Amount:     op.Amount,
			Currency:   op.Currency,
			OccurredAt: op.OccurredAt,
		}
	}
	return result
}

// ListOperationsResponse wraps an account's operations history.
type ListOperationsResponse struct {
	Operations []*OperationResponse `json:"operations"`
	Total      int64                `json:"total"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
