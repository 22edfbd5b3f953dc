package authors

type CreateAuthorPayload struct {
	Name string  `json:"name" mod:"trim" validate:"required,max=200"`
	Bio  *string `json:"bio" mod:"trim" validate:"omitempty,max=2000"`
}

type UpdateAuthorPayload struct {
	Name *string `json:"name" mod:"trim" validate:"omitnil,min=1,max=200"`
	Bio  *string `json:"bio" mod:"trim" validate:"omitempty,max=2000"`
}

type ListAuthorsQuery struct {
	Limit  int     `query:"limit" json:"limit" default:"50" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=200"`
}
