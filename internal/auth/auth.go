// Package auth verifies report credentials against a bcrypt hash. The
// legacy dashboard accepted plaintext and weak-hash comparisons as
// fallbacks; this verifier supports bcrypt only.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any username or password mismatch.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Verifier checks a single configured credential pair.
type Verifier struct {
	username string
	hash     []byte
}

// NewVerifier builds a Verifier. passwordHash must be a bcrypt hash;
// anything else is rejected up front rather than failing on first login.
func NewVerifier(username, passwordHash string) (*Verifier, error) {
	if username == "" || passwordHash == "" {
		return nil, errors.New("auth: username and password hash are required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("auth: not a bcrypt hash: %w", err)
	}
	return &Verifier{username: username, hash: []byte(passwordHash)}, nil
}

// Verify checks the supplied credentials. Both comparisons always run so
// timing does not reveal which half failed.
func (v *Verifier) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(v.hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash for configuration bootstrapping.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
