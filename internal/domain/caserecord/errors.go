package caserecord

import "errors"

var (
	// ErrRecordNotFound indicates the case record doesn't exist.
	ErrRecordNotFound = errors.New("case record not found")
	// ErrInvalidPrefix indicates an unusable case number prefix.
	ErrInvalidPrefix = errors.New("invalid case number prefix")
	// ErrCorruptCaseNumber indicates an existing case number for the month
	// could not be parsed, so the next sequence cannot be trusted.
	ErrCorruptCaseNumber = errors.New("corrupt case number in registry")
	// ErrCaseNumberExhausted indicates the monthly sequence is used up.
	ErrCaseNumberExhausted = errors.New("case number sequence exhausted for month")
	// ErrDuplicateCaseNumber indicates a generated case number already exists.
	ErrDuplicateCaseNumber = errors.New("duplicate case number")
)
