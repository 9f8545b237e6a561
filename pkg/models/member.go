package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MemberTypeStudent = "student"
	MemberTypeFaculty = "faculty"
	MemberTypePublic  = "public"
)

// MemberTypes lists every member type in display order.
var MemberTypes = []string{MemberTypeStudent, MemberTypeFaculty, MemberTypePublic}

type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID         int       `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Name       string    `bun:",nullzero" json:"name"`
	MemberCode string    `bun:",nullzero" json:"member_code"`
	Email      *string   `json:"email"`
	Phone      *string   `json:"phone"`
	Address    *string   `json:"address"`
	MemberType string    `bun:",nullzero" json:"member_type"`
	Notes      *string   `json:"notes"`
}
