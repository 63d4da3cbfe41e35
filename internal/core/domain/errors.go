package domain

import "errors"

var (
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidLimit     = errors.New("invalid limit")
	ErrNotFound         = errors.New("not found")
	ErrUnavailable      = errors.New("unavailable")
)
