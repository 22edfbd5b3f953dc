package auth

type RegisterPayload struct {
	Email string `json:"email" mod:"trim,lcase" validate:"required,email,max=254"`
	Name  string `json:"name" mod:"trim" validate:"required,max=200"`
	// bcrypt ignores everything past 72 bytes.
	Password string `json:"password" validate:"required,maxbytes=72"`
}

type LoginPayload struct {
	Email    string `json:"email" mod:"trim,lcase" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SessionResponse struct {
	Token string          `json:"token"`
	User  ProfileResponse `json:"user"`
}
