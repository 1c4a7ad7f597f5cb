package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	// ErrMissingPassword indicates that no access password is configured.
	ErrMissingPassword = errors.New("auth: access password required")
	// ErrWrongPassword indicates a failed login attempt.
	ErrWrongPassword = errors.New("auth: wrong password")
)

// PasswordGate checks login attempts against the single configured password.
type PasswordGate struct {
	password []byte
}

// NewPasswordGate constructs a gate for the configured access password.
func NewPasswordGate(password string) (*PasswordGate, error) {
	trimmed := strings.TrimSpace(password)
	if trimmed == "" {
		return nil, ErrMissingPassword
	}
	return &PasswordGate{password: []byte(trimmed)}, nil
}

// Check compares the attempt in constant time.
func (g *PasswordGate) Check(attempt string) error {
	if subtle.ConstantTimeCompare(g.password, []byte(attempt)) != 1 {
		return ErrWrongPassword
	}
	return nil
}
