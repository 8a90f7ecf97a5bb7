package dto

import "time"

// LoginRequest payload for staff and donor login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}

// RequestorAccessCodeRequest asks for a one-time code to be emailed.
type RequestorAccessCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *RequestorAccessCodeRequest) Validate() error {
	return validate.Struct(r)
}

// RequestorSessionRequest exchanges an emailed code for a session token.
type RequestorSessionRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

func (r *RequestorSessionRequest) Validate() error {
	return validate.Struct(r)
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (r *PasswordChangeRequest) Validate() error {
	return validate.Struct(r)
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
