package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TransactionTypeLend   = "lend"
	TransactionTypeReturn = "return"
)

const (
	LoanStatusOnTime  = "on_time"
	LoanStatusOverdue = "overdue"
)

type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`

	ID              int        `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	BookID          int        `bun:",nullzero" json:"book_id"`
	Book            *Book      `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	MemberID        int        `bun:",nullzero" json:"member_id"`
	Member          *Member    `bun:"rel:belongs-to,join:member_id=id" json:"member,omitempty"`
	Type            string     `bun:",nullzero" json:"type"`
	TransactionDate time.Time  `json:"transaction_date"`
	DueDate         time.Time  `json:"due_date"`
	ReturnDate      *time.Time `json:"return_date"`
	FineAmount      float64    `json:"fine_amount"`
	FinePaid        bool       `json:"fine_paid"`
	Notes           *string    `json:"notes"`

	// Projection fields, filled in for active and overdue loan listings.
	LoanStatus  string `bun:"-" json:"loan_status,omitempty"`
	DaysOverdue *int   `bun:"-" json:"days_overdue,omitempty"`
}

// IsOpen reports whether the transaction is an active loan.
func (t *Transaction) IsOpen() bool {
	return t.Type == TransactionTypeLend && t.ReturnDate == nil
}
