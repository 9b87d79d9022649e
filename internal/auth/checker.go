// Package auth implements the dashboard login gate: credential checking and
// the signed session cookie that carries the logged-in flag.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialChecker validates a username/password pair. It returns
// ErrInvalidCredentials when the pair is rejected.
type CredentialChecker interface {
	Check(ctx context.Context, username, password string) error
}

// StaticChecker accepts exactly one configured pair.
type StaticChecker struct {
	username string
	password string
}

func NewStaticChecker(username, password string) *StaticChecker {
	return &StaticChecker{username: username, password: password}
}

func (c *StaticChecker) Check(_ context.Context, username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(c.password))
	if userOK&passOK != 1 || c.username == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// BcryptChecker accepts the configured username with a password matching a
// bcrypt hash.
type BcryptChecker struct {
	username string
	hash     []byte
}

// NewBcryptChecker validates the hash format up front.
func NewBcryptChecker(username, hash string) (*BcryptChecker, error) {
	if username == "" {
		return nil, errors.New("auth: username is required")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, err
	}
	return &BcryptChecker{username: username, hash: []byte(hash)}, nil
}

func (c *BcryptChecker) Check(_ context.Context, username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	// Always compare so timing does not reveal whether the username matched.
	err := bcrypt.CompareHashAndPassword(c.hash, []byte(password))
	if !userOK || err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for DASHBOARD_PASSWORD_HASH.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NewChecker picks the bcrypt checker when a hash is configured and the
// static pair otherwise.
func NewChecker(username, password, passwordHash string) (CredentialChecker, error) {
	if passwordHash != "" {
		return NewBcryptChecker(username, passwordHash)
	}
	if username == "" || password == "" {
		return nil, errors.New("auth: username and password are required")
	}
	return NewStaticChecker(username, password), nil
}
