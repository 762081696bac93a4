package user

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotConfirmed       = errors.New("email address not confirmed")
	ErrInvalidToken       = errors.New("confirmation token is invalid or expired")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSelfDemotion       = errors.New("cannot remove own admin rights")
	ErrInvalidRole        = errors.New("invalid role")
	// ErrConfirmationNotSent is returned alongside a successfully stored
	// account whose confirmation email could not be delivered.
	ErrConfirmationNotSent = errors.New("confirmation email could not be sent")
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleViewer:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

type User struct {
	Id           int
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Confirmed    bool
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session is a login kept server side. Token is the value of the session cookie.
type Session struct {
	Token     string
	UserId    int
	ExpiresAt time.Time
}
