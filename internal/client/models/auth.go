package models

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// AuthPayload is returned by login and signup.
type AuthPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// MessageResponse carries a human-readable backend message.
type MessageResponse struct {
	Message string `json:"message"`
}
