package service

import "errors"

var (
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserInactive          = errors.New("user is inactive")
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenNotFound         = errors.New("token not found")
	ErrContactNotFound       = errors.New("contact not found")
)
