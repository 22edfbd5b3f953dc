package books

type CreateBookPayload struct {
	Title       string  `json:"title" mod:"trim" validate:"required,max=300"`
	AuthorID    string  `json:"authorId" mod:"trim" validate:"required,max=64"`
	ISBN        *string `json:"isbn" mod:"trim" validate:"omitempty,max=32"`
	Description *string `json:"description" mod:"trim" validate:"omitempty,max=5000"`
	PublishedAt *string `json:"publishedAt" validate:"omitempty,date"`
}

// UpdateBookPayload only touches the fields that are present. An empty string
// clears isbn, description and publishedAt.
type UpdateBookPayload struct {
	Title       *string `json:"title" mod:"trim" validate:"omitnil,min=1,max=300"`
	AuthorID    *string `json:"authorId" mod:"trim" validate:"omitnil,min=1,max=64"`
	ISBN        *string `json:"isbn" mod:"trim" validate:"omitempty,max=32"`
	Description *string `json:"description" mod:"trim" validate:"omitempty,max=5000"`
	PublishedAt *string `json:"publishedAt" validate:"omitempty,date"`
}

type ListBooksQuery struct {
	Limit      int     `query:"limit" json:"limit" default:"50" validate:"min=1,max=100"`
	Offset     int     `query:"offset" json:"offset" validate:"min=0"`
	AuthorID   *string `query:"authorId" json:"authorId,omitempty" validate:"omitempty,max=64"`
	IsBorrowed *bool   `query:"isBorrowed" json:"isBorrowed,omitempty"`
	Search     *string `query:"search" json:"search,omitempty" validate:"omitempty,max=200"`
}
