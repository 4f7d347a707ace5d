package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarysvc/internal/auth"
	"librarysvc/internal/httpx"
	kafkax "librarysvc/internal/kafka"
	"librarysvc/internal/library"
	"librarysvc/internal/memstore"
)

// pubRecorder captures published envelopes instead of talking to kafka.
type pubRecorder struct {
	mu     sync.Mutex
	events []library.Envelope
}

func (p *pubRecorder) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var env library.Envelope
	if err := json.Unmarshal(value, &env); err == nil {
		p.events = append(p.events, env)
	}
}

func (p *pubRecorder) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type apiFixture struct {
	t      *testing.T
	srv    *httptest.Server
	store  *memstore.Store
	ledger *library.BorrowLedger
	pub    *pubRecorder
	now    time.Time
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memstore.New()
	pub := &pubRecorder{}

	f := &apiFixture{
		t:     t,
		store: store,
		pub:   pub,
		now:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	tokens := store.Tokens()
	users := store.Users()
	authSvc := &auth.Service{Users: users, Tokens: tokens}
	catalog := &library.Catalog{Books: store.Books()}
	f.ledger = &library.BorrowLedger{
		Store: store.Ledger(),
		Now:   func() time.Time { return f.now },
	}
	fines := &library.FineLedger{Fines: store.Fines()}

	router := httpx.NewRouter()
	(&httpx.AuthHandler{Auth: authSvc}).Register(router)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens, users))
		(&httpx.BooksHandler{Catalog: catalog}).Register(r)
		(&httpx.BorrowsHandler{
			Ledger:        f.ledger,
			Service:       "library-api-test",
			PubCreated:    pub,
			PubReturned:   pub,
			PubFineIssued: pub,
		}).Register(r)
		(&httpx.FinesHandler{Fines: fines, Service: "library-api-test", PubPaid: pub}).Register(r)
	})

	f.srv = httptest.NewServer(router)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *apiFixture) do(method, path, token string, body any) (*http.Response, []byte) {
	f.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(f.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(f.t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	resp.Body.Close()
	return resp, raw
}

// signup registers a member account and returns a usable access token.
func (f *apiFixture) signup(username string) string {
	f.t.Helper()
	resp, _ := f.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": username, "password": "opensesame",
	})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode)
	return f.login(username)
}

// adminToken seeds a staff account directly, the way cmd/api does at startup.
func (f *apiFixture) adminToken(username string) string {
	f.t.Helper()
	hash, err := auth.HashPassword("opensesame")
	require.NoError(f.t, err)
	u := &library.User{Username: username, PasswordHash: hash, IsStaff: true}
	require.NoError(f.t, f.store.Users().Create(context.Background(), u))
	return f.login(username)
}

func (f *apiFixture) login(username string) string {
	f.t.Helper()
	resp, raw := f.do(http.MethodPost, "/auth/token", "", map[string]string{
		"username": username, "password": "opensesame",
	})
	require.Equal(f.t, http.StatusOK, resp.StatusCode)
	var pair struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(f.t, json.Unmarshal(raw, &pair))
	return pair.AccessToken
}

func TestAuthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp, _ := f.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "reader", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	token := f.signup("reader")
	assert.NotEmpty(t, token)

	resp, _ = f.do(http.MethodPost, "/auth/token", "", map[string]string{
		"username": "reader", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// No token, no API.
	resp, _ = f.do(http.MethodGet, "/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = f.do(http.MethodGet, "/books", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBooksEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	memberTok := f.signup("reader")
	adminTok := f.adminToken("librarian")

	book := map[string]any{"title": "Dubliners", "author": "Joyce", "description": "stories", "price": 30, "stock": 2}

	// Members cannot write the catalog.
	resp, _ := f.do(http.MethodPost, "/books", memberTok, book)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := f.do(http.MethodPost, "/books", adminTok, book)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID      int64 `json:"id"`
		IsStock bool  `json:"is_stock"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.True(t, created.IsStock)

	// Price must be positive.
	bad := map[string]any{"title": "X", "author": "Y", "price": 0, "stock": 1}
	resp, _ = f.do(http.MethodPost, "/books", adminTok, bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Reads are open to members.
	resp, _ = f.do(http.MethodGet, fmt.Sprintf("/books/%d", created.ID), memberTok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Patch one field.
	resp, raw = f.do(http.MethodPatch, fmt.Sprintf("/books/%d", created.ID), adminTok, map[string]any{"price": 35})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var patched struct {
		Price int    `json:"price"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(raw, &patched))
	assert.Equal(t, 35, patched.Price)
	assert.Equal(t, "Dubliners", patched.Title)

	resp, _ = f.do(http.MethodDelete, fmt.Sprintf("/books/%d", created.ID), memberTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = f.do(http.MethodDelete, fmt.Sprintf("/books/%d", created.ID), adminTok, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(http.MethodGet, fmt.Sprintf("/books/%d", created.ID), memberTok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBorrowEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	memberTok := f.signup("reader")
	adminTok := f.adminToken("librarian")

	resp, raw := f.do(http.MethodPost, "/books", adminTok,
		map[string]any{"title": "Ulysses", "author": "Joyce", "price": 40, "stock": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var book struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &book))

	// Empty list is rejected.
	resp, _ = f.do(http.MethodPost, "/borrows", memberTok, map[string]any{"book_ids": []int64{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = f.do(http.MethodPost, "/borrows", memberTok, map[string]any{"book_ids": []int64{book.ID}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var borrow struct {
		BorrowID   string `json:"borrow_id"`
		FineAmount int    `json:"fine_amount"`
		IsOverdue  bool   `json:"is_overdue"`
	}
	require.NoError(t, json.Unmarshal(raw, &borrow))
	assert.Zero(t, borrow.FineAmount)
	assert.False(t, borrow.IsOverdue)

	// The single copy is gone now.
	resp, raw = f.do(http.MethodPost, "/borrows", adminTok, map[string]any{"book_ids": []int64{book.ID}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "out of stock")

	// Owner sees the borrow; admin sees it in the full listing.
	resp, _ = f.do(http.MethodGet, "/borrows/"+borrow.BorrowID, memberTok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, raw = f.do(http.MethodGet, "/borrows", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &all))
	assert.Len(t, all, 1)

	// Return 20 days later: 6 days past the deadline, fine of 30 issued.
	f.now = f.now.Add(20 * 24 * time.Hour)
	resp, _ = f.do(http.MethodPost, "/borrows/"+borrow.BorrowID+"/return_books", memberTok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(http.MethodGet, "/borrows/"+borrow.BorrowID, memberTok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = f.do(http.MethodGet, "/fines", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fines []struct {
		ID     string `json:"fine_id"`
		Amount int    `json:"amount"`
		Paid   bool   `json:"paid"`
	}
	require.NoError(t, json.Unmarshal(raw, &fines))
	require.Len(t, fines, 1)
	assert.Equal(t, 30, fines[0].Amount)

	assert.Equal(t, []string{
		library.EventBorrowCreated,
		library.EventFineIssued,
		library.EventBooksReturned,
	}, f.pub.types())

	created, err := kafkax.UnwrapPayload[library.BorrowCreatedPayload](f.pub.events[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, borrow.BorrowID, created.BorrowID.String())
	assert.Equal(t, []int64{book.ID}, created.BookIDs)

	issued, err := kafkax.UnwrapPayload[library.FineIssuedPayload](f.pub.events[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, 30, issued.Amount)
}

func TestFineEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	memberTok := f.signup("reader")
	adminTok := f.adminToken("librarian")

	resp, raw := f.do(http.MethodPost, "/books", adminTok,
		map[string]any{"title": "Hamlet", "author": "Shakespeare", "price": 15, "stock": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var book struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &book))

	resp, raw = f.do(http.MethodPost, "/borrows", memberTok, map[string]any{"book_ids": []int64{book.ID}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var borrow struct {
		BorrowID string `json:"borrow_id"`
	}
	require.NoError(t, json.Unmarshal(raw, &borrow))

	f.now = f.now.Add(16 * 24 * time.Hour)
	resp, _ = f.do(http.MethodPost, "/borrows/"+borrow.BorrowID+"/return_books", memberTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Members cannot list or pay fines.
	resp, _ = f.do(http.MethodGet, "/fines", memberTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = f.do(http.MethodGet, "/fines", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fines []struct {
		ID   string `json:"fine_id"`
		Paid bool   `json:"paid"`
	}
	require.NoError(t, json.Unmarshal(raw, &fines))
	require.Len(t, fines, 1)
	assert.False(t, fines[0].Paid)

	resp, _ = f.do(http.MethodPost, "/fines/"+fines[0].ID+"/pay", memberTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = f.do(http.MethodPost, "/fines/"+fines[0].ID+"/pay", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var paid struct {
		Paid bool `json:"paid"`
	}
	require.NoError(t, json.Unmarshal(raw, &paid))
	assert.True(t, paid.Paid)
}
