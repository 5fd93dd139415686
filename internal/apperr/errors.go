// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNoSelection        = errors.New("no active selection")
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrTooLarge           = errors.New("document too large")
)
