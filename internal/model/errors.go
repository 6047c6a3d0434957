package model

import "errors"

var (
	// ErrNotFound reports an unknown ticker or company name.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientData reports a series too short for the requested metric.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDivisionByZero reports a change metric whose base close is zero.
	ErrDivisionByZero = errors.New("division by zero")
)
