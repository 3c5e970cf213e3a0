package admin

import (
	"context"
	"crypto/subtle"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrUnauthorized       = errors.New("admin session required")
)

// Authenticator checks admin credentials. It stands in for a real identity provider.
type Authenticator interface {
	Authenticate(ctx context.Context, password string) error
}

// StaticPassword accepts a single configured password. An empty password disables admin login.
type StaticPassword struct {
	password string
}

func NewStaticPassword(password string) *StaticPassword {
	return &StaticPassword{password: password}
}

func (s *StaticPassword) Authenticate(ctx context.Context, password string) error {
	if s.password == "" || password == "" {
		return ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(s.password), []byte(password)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
