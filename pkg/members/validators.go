package members

type ListMembersQuery struct {
	Limit      int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset     int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search     *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
	MemberType *string `query:"member_type" json:"member_type,omitempty" validate:"omitempty,oneof=student faculty public"`
}

type CreateMemberPayload struct {
	Name       string  `json:"name" mod:"trim" validate:"required,min=2,max=200"`
	MemberCode string  `json:"member_code" mod:"trim" validate:"required,min=3,max=50"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address    *string `json:"address,omitempty" validate:"omitempty,max=500"`
	MemberType string  `json:"member_type" mod:"trim,lcase" default:"public" validate:"oneof=student faculty public"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type UpdateMemberPayload struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	MemberCode *string `json:"member_code,omitempty" validate:"omitempty,min=3,max=50"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address    *string `json:"address,omitempty" validate:"omitempty,max=500"`
	MemberType *string `json:"member_type,omitempty" validate:"omitempty,oneof=student faculty public"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type ListLoansQuery struct {
	Limit  int  `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Open   bool `query:"open" json:"open,omitempty"`
}
