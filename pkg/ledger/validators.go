package ledger

type LendPayload struct {
	BookID   int     `json:"book_id" validate:"required,min=1"`
	MemberID int     `json:"member_id" validate:"required,min=1"`
	DueDate  string  `json:"due_date,omitempty" validate:"date"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type ListTransactionsQuery struct {
	Limit    int     `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset   int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	BookID   *int    `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
	MemberID *int    `query:"member_id" json:"member_id,omitempty" validate:"omitempty,min=1"`
	Type     *string `query:"type" json:"type,omitempty" validate:"omitempty,oneof=lend return"`
	Open     bool    `query:"open" json:"open,omitempty"`
}
