package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "librarysvc/internal/kafka"
	"librarysvc/internal/library"
)

type FinesHandler struct {
	Fines   *library.FineLedger
	Service string

	PubPaid EventPublisher
}

func (h *FinesHandler) Register(r chi.Router) {
	r.Get("/fines", h.list)
	r.Get("/fines/{id}", h.get)
	r.Post("/fines/{id}/pay", h.pay)
}

func fineUUID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func (h *FinesHandler) list(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok {
		writeError(w, library.ErrUnauthenticated)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	fines, err := h.Fines.List(ctx, u)
	if err != nil {
		writeError(w, err)
		return
	}
	if fines == nil {
		fines = []library.Fine{}
	}
	writeJSON(w, http.StatusOK, fines)
}

func (h *FinesHandler) get(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok {
		writeError(w, library.ErrUnauthenticated)
		return
	}
	id, ok := fineUUID(r)
	if !ok {
		writeError(w, library.ErrNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f, err := h.Fines.Get(ctx, id, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FinesHandler) pay(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(r)
	if !ok {
		writeError(w, library.ErrUnauthenticated)
		return
	}
	id, ok := fineUUID(r)
	if !ok {
		writeError(w, library.ErrNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	f, err := h.Fines.Pay(ctx, id, u)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.PubPaid != nil {
		ev := library.Envelope{
			EventID:       uuid.NewString(),
			EventType:     library.EventFinePaid,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: f.ID.String(),
			Payload: kafkax.MustMarshal(library.FinePaidPayload{
				FineID: f.ID,
				UserID: f.UserID,
				Amount: f.Amount,
			}),
		}
		h.PubPaid.Publish(library.PartitionKey(f.ID.String()), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(library.EventFinePaid)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusOK, f)
}
