package users

type CreateUserPayload struct {
	Name  string  `json:"name" mod:"trim" validate:"required,max=200"`
	Email string  `json:"email" mod:"trim,lcase" validate:"required,email,max=254"`
	Phone *string `json:"phone" mod:"trim" validate:"omitempty,max=50"`
}

type UpdateUserPayload struct {
	Name  *string `json:"name" mod:"trim" validate:"omitnil,min=1,max=200"`
	Email *string `json:"email" mod:"trim,lcase" validate:"omitnil,email,max=254"`
	Phone *string `json:"phone" mod:"trim" validate:"omitempty,max=50"`
}

type ListUsersQuery struct {
	Limit  int     `query:"limit" json:"limit" default:"50" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=200"`
}
