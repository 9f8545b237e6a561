package books

type ListBooksQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
	Genre  *string `query:"genre" json:"genre,omitempty" validate:"omitempty,max=100"`
	Status *string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=available loaned reserved"`
}

type CreateBookPayload struct {
	Title           string   `json:"title" mod:"trim" validate:"required,max=300"`
	Authors         []string `json:"authors" validate:"required,min=1,dive,required,max=200"`
	ISBN            *string  `json:"isbn,omitempty" validate:"omitempty,isbn"`
	Publisher       *string  `json:"publisher,omitempty" validate:"omitempty,max=200"`
	PublicationYear *int     `json:"publication_year,omitempty" validate:"omitempty,min=1000"`
	Genres          []string `json:"genres,omitempty" validate:"omitempty,dive,max=100"`
	Language        *string  `json:"language,omitempty" validate:"omitempty,lang"`
	TotalCopies     *int     `json:"total_copies,omitempty" validate:"omitempty,min=1,max=10000"`
	Location        *string  `json:"location,omitempty" validate:"omitempty,max=100"`
	Tags            []string `json:"tags,omitempty" validate:"omitempty,dive,max=100"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	CoverImage      *string  `json:"cover_image,omitempty" validate:"omitempty,max=500"`
}

type UpdateBookPayload struct {
	Title           *string  `json:"title,omitempty" validate:"omitempty,max=300"`
	Authors         []string `json:"authors,omitempty" validate:"omitempty,min=1,dive,required,max=200"`
	ISBN            *string  `json:"isbn,omitempty" validate:"omitempty,isbn"`
	Publisher       *string  `json:"publisher,omitempty" validate:"omitempty,max=200"`
	PublicationYear *int     `json:"publication_year,omitempty" validate:"omitempty,min=1000"`
	Genres          []string `json:"genres,omitempty" validate:"omitempty,dive,max=100"`
	Language        *string  `json:"language,omitempty" validate:"omitempty,lang"`
	TotalCopies     *int     `json:"total_copies,omitempty" validate:"omitempty,min=1,max=10000"`
	Location        *string  `json:"location,omitempty" validate:"omitempty,max=100"`
	Tags            []string `json:"tags,omitempty" validate:"omitempty,dive,max=100"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	CoverImage      *string  `json:"cover_image,omitempty" validate:"omitempty,max=500"`
}
