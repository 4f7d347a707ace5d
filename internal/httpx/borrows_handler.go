package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "librarysvc/internal/kafka"
	"librarysvc/internal/library"
)

// EventPublisher is the slice of the kafka producer the handlers need; tests
// plug in a recorder.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type BorrowsHandler struct {
	Ledger  *library.BorrowLedger
	Service string

	PubCreated    EventPublisher
	PubReturned   EventPublisher
	PubFineIssued EventPublisher
}

func (h *BorrowsHandler) Register(r chi.Router) {
	r.Get("/borrows", h.list)
	r.Post("/borrows", h.create)
	r.Get("/borrows/{id}", h.get)
	r.Post("/borrows/{id}/return_books", h.returnBooks)
}

type createBorrowReq struct {
	BookIDs []int64 `json:"book_ids"`
}

type borrowResponse struct {
	BorrowID       uuid.UUID      `json:"borrow_id"`
	UserID         int64          `json:"user_id"`
	Books          []bookResponse `json:"books"`
	BorrowedAt     time.Time      `json:"borrowed_at"`
	ReturnDeadline time.Time      `json:"return_deadline"`
	FineAmount     int            `json:"fine_amount"`
	IsOverdue      bool           `json:"is_overdue"`
}

func toBorrowResponse(b library.Borrow, now time.Time) borrowResponse {
	books := make([]bookResponse, 0, len(b.Books))
	for _, bk := range b.Books {
		books = append(books, toBookResponse(bk))
	}
	return borrowResponse{
		BorrowID:       b.ID,
		UserID:         b.UserID,
		Books:          books,
		BorrowedAt:     b.BorrowedAt,
		ReturnDeadline: b.ReturnDeadline,
		FineAmount:     library.CalculateFine(b.ReturnDeadline, now),
		IsOverdue:      b.Overdue(now),
	}
}

func borrowUUID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func (h *BorrowsHandler) create(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok {
		writeError(w, library.ErrUnauthenticated)
		return
	}
	var req createBorrowReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.Ledger.CreateBorrow(ctx, u.ID, req.BookIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, h.PubCreated, library.EventBorrowCreated, b.ID.String(), library.BorrowCreatedPayload{
		BorrowID:       b.ID,
		UserID:         b.UserID,
		BookIDs:        bookIDs(b.Books),
		ReturnDeadline: b.ReturnDeadline,
	})

	writeJSON(w, http.StatusCreated, toBorrowResponse(*b, h.Ledger.Now()))
}

func (h *BorrowsHandler) list(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok {
		writeError(w, library.ErrUnauthenticated)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	borrows, err := h.Ledger.List(ctx, u)
	if err != nil {
		writeError(w, err)
		return
	}
	now := h.Ledger.Now()
	out := make([]borrowResponse, 0, len(borrows))
	for _, b := range borrows {
		out = append(out, toBorrowResponse(b, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BorrowsHandler) get(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok {
		writeError(w, library.ErrUnauthenticated)
		return
	}
	id, ok := borrowUUID(r)
	if !ok {
		writeError(w, library.ErrNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b, err := h.Ledger.Get(ctx, id, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBorrowResponse(*b, h.Ledger.Now()))
}

func (h *BorrowsHandler) returnBooks(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok {
		writeError(w, library.ErrUnauthenticated)
		return
	}
	id, ok := borrowUUID(r)
	if !ok {
		writeError(w, library.ErrNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, fine, err := h.Ledger.ReturnBooks(ctx, id, u)
	if err != nil {
		writeError(w, err)
		return
	}

	fineAmount := 0
	if fine != nil {
		fineAmount = fine.Amount
		h.publish(r, h.PubFineIssued, library.EventFineIssued, fine.ID.String(), library.FineIssuedPayload{
			FineID:   fine.ID,
			BorrowID: b.ID,
			UserID:   fine.UserID,
			Amount:   fine.Amount,
		})
	}
	h.publish(r, h.PubReturned, library.EventBooksReturned, b.ID.String(), library.BooksReturnedPayload{
		BorrowID:   b.ID,
		UserID:     b.UserID,
		BookIDs:    bookIDs(b.Books),
		FineAmount: fineAmount,
	})

	// Callers re-query for state; nothing more to say here.
	w.WriteHeader(http.StatusOK)
}

func (h *BorrowsHandler) publish(r *http.Request, pub EventPublisher, eventType, correlationID string, payload any) {
	if pub == nil {
		return
	}
	ev := library.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	pub.Publish(library.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func bookIDs(books []library.Book) []int64 {
	ids := make([]int64, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids
}
