// Package apperr defines the error kinds shared by the workflow services.
// Services declare their own sentinels on top of a kind so handlers can map
// any of them to a status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrAuth       = errors.New("authentication failed")
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrStore      = errors.New("store error")
)

// Error is a user-visible message tagged with a kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) error { return newError(ErrValidation, msg) }
func NotFound(msg string) error   { return newError(ErrNotFound, msg) }
func Forbidden(msg string) error  { return newError(ErrForbidden, msg) }
func Conflict(msg string) error   { return newError(ErrConflict, msg) }
func Auth(msg string) error       { return newError(ErrAuth, msg) }

// StoreError wraps a failed select/insert/update/delete. The underlying
// driver error stays reachable for logging but never reaches the client.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

// Store wraps err as a StoreError. A nil err stays nil, and errors that
// already carry a kind pass through unchanged so transaction closures can
// return sentinels directly.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	var se *StoreError
	if errors.As(err, &ae) || errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// Message returns the text safe to show a user for err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	if errors.Is(err, ErrStore) {
		return "Something went wrong. Please try again."
	}
	return err.Error()
}
