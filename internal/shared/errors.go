package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates a registration against an existing account.
	ErrEmailTaken = errors.New("email already in use")
	// ErrTokenInvalid indicates a malformed or forged bearer token.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates a bearer token past its lifetime.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionRevoked indicates a token whose backing session was destroyed.
	ErrSessionRevoked = errors.New("session revoked")
)
