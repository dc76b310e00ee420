package authapi

import (
	"time"

	"backoffice/cmd/internal/session"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

type tokenExpiry struct {
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type loginResponse struct {
	User    userResponse `json:"user"`
	Session tokenExpiry  `json:"session"`
}

// sessionResponse is the redacted view served by GET /auth/session.
type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *userResponse `json:"user"`
}

func toUserResponse(u *session.UserProfile) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
	}
}
