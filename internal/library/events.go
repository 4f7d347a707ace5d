package library

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventBorrowCreated = "BorrowCreated"
	EventBooksReturned = "BooksReturned"
	EventFineIssued    = "FineIssued"
	EventFinePaid      = "FinePaid"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // borrow or fine id
	Payload       json.RawMessage `json:"payload"`
}

type BorrowCreatedPayload struct {
	BorrowID       uuid.UUID `json:"borrow_id"`
	UserID         int64     `json:"user_id"`
	BookIDs        []int64   `json:"book_ids"`
	ReturnDeadline time.Time `json:"return_deadline"`
}

type BooksReturnedPayload struct {
	BorrowID   uuid.UUID `json:"borrow_id"`
	UserID     int64     `json:"user_id"`
	BookIDs    []int64   `json:"book_ids"`
	FineAmount int       `json:"fine_amount"`
}

type FineIssuedPayload struct {
	FineID   uuid.UUID `json:"fine_id"`
	BorrowID uuid.UUID `json:"borrow_id"`
	UserID   int64     `json:"user_id"`
	Amount   int       `json:"amount"`
}

type FinePaidPayload struct {
	FineID uuid.UUID `json:"fine_id"`
	UserID int64     `json:"user_id"`
	Amount int       `json:"amount"`
}
