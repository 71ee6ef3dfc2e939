package model

import "time"

// User represents an application user record as stored in the `users`
// table. Handlers never serialize it; the password hash stays in the
// repository and service layers.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	UserName     – unique login name.
//	PasswordHash – bcrypt hashed password.
//	FirstName    – given name, becomes the given_name claim.
//	LastName     – family name, becomes the family_name claim.
//	City         – home city, becomes the city claim used by policies.
//	IsActive     – inactive users cannot authenticate.
type User struct {
	ID           uint64
	UserName     string
	PasswordHash string
	FirstName    string
	LastName     string
	City         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthenticatedUser is the request-scoped result of a successful
// credential check. It only feeds token claims and is never persisted.
type AuthenticatedUser struct {
	UserID    uint64
	UserName  string
	FirstName string
	LastName  string
	City      string
}

// Authenticated projects a stored user onto the claims-facing shape.
func (u User) Authenticated() AuthenticatedUser {
	return AuthenticatedUser{
		UserID:    u.ID,
		UserName:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		City:      u.City,
	}
}
