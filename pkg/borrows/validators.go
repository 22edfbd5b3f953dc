package borrows

type BorrowPayload struct {
	UserID string `json:"userId" mod:"trim" validate:"required,max=64"`
	BookID string `json:"bookId" mod:"trim" validate:"required,max=64"`
	// DueAt is either YYYY-MM-DD, meaning the end of that day in UTC, or an
	// RFC 3339 timestamp.
	DueAt *string `json:"dueAt" mod:"trim" validate:"omitempty,datetime"`
}

type ListBorrowsQuery struct {
	Limit   int    `query:"limit" json:"limit" default:"50" validate:"min=1,max=100"`
	Offset  int    `query:"offset" json:"offset" validate:"min=0"`
	Status  string `query:"status" json:"status" default:"active" validate:"oneof=active returned all"`
	Overdue bool   `query:"overdue" json:"overdue"`
}
