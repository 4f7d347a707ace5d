package library

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Price       int       `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InStock reports whether at least one copy is on the shelf.
func (b Book) InStock() bool { return b.Stock > 0 }

type Borrow struct {
	ID             uuid.UUID `json:"borrow_id"`
	UserID         int64     `json:"user_id"`
	Books          []Book    `json:"books"`
	BorrowedAt     time.Time `json:"borrowed_at"`
	ReturnDeadline time.Time `json:"return_deadline"`
}

// Overdue reports whether the deadline has passed at the given instant.
func (b Borrow) Overdue(now time.Time) bool { return now.After(b.ReturnDeadline) }

type Fine struct {
	ID       uuid.UUID  `json:"fine_id"`
	UserID   int64      `json:"user_id"`
	BorrowID *uuid.UUID `json:"borrow_id"` // nil once the borrow is closed
	Amount   int        `json:"amount"`
	Paid     bool       `json:"paid"`
	IssuedAt time.Time  `json:"issued_at"`
}

// LoanPeriod is how long a borrow may be kept before fines accrue.
const LoanPeriod = 14 * 24 * time.Hour

// MaxOutstandingBooks caps the number of books a user may have out at once.
const MaxOutstandingBooks = 5
