package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	BookStatusAvailable = "available"
	BookStatusLoaned    = "loaned"
	// BookStatusReserved is accepted by the schema but no workflow sets it.
	BookStatusReserved = "reserved"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID              int       `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Title           string    `bun:",nullzero" json:"title"`
	Authors         []string  `bun:",notnull" json:"authors"`
	ISBN            *string   `bun:"isbn" json:"isbn"`
	Publisher       *string   `json:"publisher"`
	PublicationYear *int      `json:"publication_year"`
	Genres          []string  `bun:",notnull" json:"genres"`
	Language        *string   `json:"language"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	Location        *string   `json:"location"`
	Tags            []string  `bun:",notnull" json:"tags"`
	Description     *string   `json:"description"`
	CoverImage      *string   `json:"cover_image"`
	Status          string    `bun:",nullzero" json:"status"`
}

// StatusForAvailable is the cached status for a given count of free copies.
func StatusForAvailable(available int) string {
	if available == 0 {
		return BookStatusLoaned
	}
	return BookStatusAvailable
}
