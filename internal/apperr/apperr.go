// Package apperr carries the failure taxonomy for the submission
// pipeline. Each stage fails with a kinded error; the HTTP layer maps
// kinds to status codes and never exposes wrapped internals for server
// faults.
package apperr

import "fmt"

type Kind int

const (
	KindAuth Kind = iota
	KindRateLimit
	KindUpload
	KindValidation
	KindPersistence
)

type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

func RateLimit(message string) *Error {
	return &Error{Kind: KindRateLimit, Message: message}
}

func Upload(message string) *Error {
	return &Error{Kind: KindUpload, Message: message}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "failed to store log entry", Err: err}
}
