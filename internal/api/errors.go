package api

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindStatus
	KindDeserialize
	KindNotFound
)

var (
	ErrNoMatch       = errors.New("no bundle matches")
	ErrAmbiguousKey  = errors.New("more than one bundle matches")
	ErrNoSessionKey  = errors.New("no session key configured")
	errNoChoiceBlock = errors.New("cannot find any data")
)

type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Kind == KindStatus {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "network error", Err: err}
}

func statusError(code int) *Error {
	return &Error{Kind: KindStatus, StatusCode: code, Message: "request failed"}
}

func deserializeError(err error) *Error {
	return &Error{Kind: KindDeserialize, Message: "cannot parse the response", Err: err}
}

func notFoundError() *Error {
	return &Error{Kind: KindNotFound, Message: "cannot find any data", Err: errNoChoiceBlock}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindStatus {
		return apiErr.StatusCode
	}
	return 0
}

// KeyMatchError reports a partial bundle key that matched zero or several
// bundles.
type KeyMatchError struct {
	Input      string
	Candidates []string
	Err        error
}

func (e *KeyMatchError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%v '%s'", e.Err, e.Input)
	}
	return fmt.Sprintf("%v '%s': %v", e.Err, e.Input, e.Candidates)
}

func (e *KeyMatchError) Unwrap() error {
	return e.Err
}
