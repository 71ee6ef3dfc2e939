// Package service holds the application services that sit between the
// HTTP handlers and the infrastructure: token issuance and the queued
// mail publisher.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cityinfo-api/internal/model"
	"github.com/iliyamo/cityinfo-api/internal/utils"
)

// ErrInvalidCredentials is returned for unknown users, inactive users and
// wrong passwords alike so callers cannot tell them apart.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserLookup finds a stored user by name; nil means no such user.
type UserLookup interface {
	GetByUserName(ctx context.Context, userName string) (*model.User, error)
}

// Authenticator validates credentials and issues signed access tokens.
type Authenticator struct {
	users UserLookup
	opts  utils.TokenOptions
	now   func() time.Time
	dummy string // hash compared for unknown users to keep timing uniform
}

// NewAuthenticator builds an Authenticator. The dummy hash uses the same
// cost as real passwords.
func NewAuthenticator(users UserLookup, opts utils.TokenOptions, bcryptCost int) (*Authenticator, error) {
	if users == nil {
		return nil, errors.New("nil user lookup")
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	dummy, err := utils.HashPassword("cityinfo-dummy-password", bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &Authenticator{users: users, opts: opts, now: time.Now, dummy: dummy}, nil
}

// ValidateUserCredentials returns the authenticated user or
// ErrInvalidCredentials. Lookup failures are returned as-is.
func (a *Authenticator) ValidateUserCredentials(ctx context.Context, userName, password string) (*model.AuthenticatedUser, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := a.users.GetByUserName(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		utils.VerifyPassword(a.dummy, password)
		return nil, ErrInvalidCredentials
	}
	if !utils.VerifyPassword(u.PasswordHash, password) || !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	au := u.Authenticated()
	return &au, nil
}

// Authenticate validates the credentials and returns a signed token.
func (a *Authenticator) Authenticate(ctx context.Context, userName, password string) (utils.AccessToken, error) {
	user, err := a.ValidateUserCredentials(ctx, userName, password)
	if err != nil {
		return utils.AccessToken{}, err
	}
	return utils.NewAccessToken(a.opts, *user, a.now())
}

// TokenOptions exposes the signing parameters so the JWT middleware can
// validate exactly what this issuer signs.
func (a *Authenticator) TokenOptions() utils.TokenOptions { return a.opts }
