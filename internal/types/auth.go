package types

// RegisterRequest represents the register request body
type RegisterRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// TokenResponse is the wire contract for issued bearer tokens.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Response is a generic envelope for simple success/error messages
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
