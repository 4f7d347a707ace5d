// Package memstore is an in-memory implementation of the library repositories.
// It backs the unit tests and makes the service runnable without Postgres.
// Transactions are copy-on-write: a failed transaction leaves no trace.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"librarysvc/internal/library"
)

type state struct {
	users   map[int64]library.User
	books   map[int64]library.Book
	borrows map[uuid.UUID]library.Borrow
	fines   map[uuid.UUID]library.Fine

	nextUserID int64
	nextBookID int64
}

func (st *state) clone() *state {
	c := &state{
		users:      make(map[int64]library.User, len(st.users)),
		books:      make(map[int64]library.Book, len(st.books)),
		borrows:    make(map[uuid.UUID]library.Borrow, len(st.borrows)),
		fines:      make(map[uuid.UUID]library.Fine, len(st.fines)),
		nextUserID: st.nextUserID,
		nextBookID: st.nextBookID,
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.books {
		c.books[k] = v
	}
	for k, v := range st.borrows {
		v.Books = append([]library.Book(nil), v.Books...)
		c.borrows[k] = v
	}
	for k, v := range st.fines {
		c.fines[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		users:      map[int64]library.User{},
		books:      map[int64]library.Book{},
		borrows:    map[uuid.UUID]library.Borrow{},
		fines:      map[uuid.UUID]library.Fine{},
		nextUserID: 1,
		nextBookID: 1,
	}}
}

func (s *Store) Books() *BooksRepo   { return &BooksRepo{s: s} }
func (s *Store) Users() *UsersRepo   { return &UsersRepo{s: s} }
func (s *Store) Fines() *FinesRepo   { return &FinesRepo{s: s} }
func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{s: s} }

// TokenStore returns an in-memory auth.TokenStore equivalent.
func (s *Store) Tokens() *TokenStore {
	return &TokenStore{entries: map[string]tokenEntry{}}
}

type tokenEntry struct {
	userID    int64
	expiresAt time.Time
}

// TokenStore keeps tokens in a map with explicit expiry checks.
type TokenStore struct {
	mu      sync.Mutex
	entries map[string]tokenEntry
}

func (t *TokenStore) save(token string, userID int64, ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[token] = tokenEntry{userID: userID, expiresAt: time.Now().Add(ttl)}
}

func (t *TokenStore) SaveAccess(_ context.Context, token string, userID int64) error {
	t.save("a:"+token, userID, 15*time.Minute)
	return nil
}

func (t *TokenStore) SaveRefresh(_ context.Context, token string, userID int64) error {
	t.save("r:"+token, userID, 7*24*time.Hour)
	return nil
}

func (t *TokenStore) lookup(key string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return 0, library.ErrUnauthenticated
	}
	return e.userID, nil
}

func (t *TokenStore) UserForAccess(_ context.Context, token string) (int64, error) {
	return t.lookup("a:" + token)
}

func (t *TokenStore) UserForRefresh(_ context.Context, token string) (int64, error) {
	return t.lookup("r:" + token)
}

func (t *TokenStore) DeleteRefresh(_ context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, "r:"+token)
	return nil
}
