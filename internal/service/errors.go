package service

import (
	"errors"

	"github.com/geocoder89/authhub/internal/auth"
)

var (
	ErrEmailConflict = errors.New("email already exists")
	// ErrInvalidCredentials covers both "no such email" and "wrong password".
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("not authorized")
	ErrUserNotFound       = errors.New("user not found")

	ErrUnauthenticated = auth.ErrUnauthenticated
)
