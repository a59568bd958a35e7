package service

import (
	"errors"

	"boutique/internal/domain"
)

// ErrForbidden is returned when the caller may not act on someone else's data
var ErrForbidden = errors.New("forbidden")

// ValidationError names the first input field that failed a business rule
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID int64
	Role   string
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// CanActFor reports whether the actor may read or write data owned by userID
func (a Actor) CanActFor(userID int64) bool {
	return a.IsAdmin() || a.UserID == userID
}
