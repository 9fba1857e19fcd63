package auth

// LoginInput represents the request body for user authentication.
type LoginInput struct {
	Email string `json:"email" validate:"required,email"`
}

// RegisterInput represents the request body for opening an account.
type RegisterInput struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Phone       string `json:"phone" validate:"max=32"`
	CollegeName string `json:"college_name" validate:"max=200"`
	Avatar      string `json:"avatar" validate:"omitempty,url"`
}
