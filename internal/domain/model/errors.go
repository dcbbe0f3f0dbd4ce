package model

import "errors"

// Validation errors shared by every layer that accepts domain input.
var (
	ErrInvalidTag    = errors.New("invalid player tag")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidRecord = errors.New("invalid record")
)
