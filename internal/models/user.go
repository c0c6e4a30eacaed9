package models

import "time"

// User is the identity-service view of the signed-in account, used for display.
type User struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	Role        string         `json:"role,omitempty"`
	ConfirmedAt *time.Time     `json:"confirmed_at,omitempty"`
	Metadata    map[string]any `json:"user_metadata,omitempty"`
}

// Session is the token pair issued by the identity service.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}

// Valid reports whether the session carries an access token.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != ""
}
