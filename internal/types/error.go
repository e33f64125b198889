package types

import (
	"errors"
	"fmt"
)

// CustomError is the transport level error carried through Fiber's error handler
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// ErrorKind classifies core errors so callers can render a specific message
type ErrorKind string

const (
	KindConfiguration        ErrorKind = "ConfigurationError"
	KindInvalidTransition    ErrorKind = "InvalidTransition"
	KindAlreadyAssigned      ErrorKind = "AlreadyAssigned"
	KindDuplicateIdentifier  ErrorKind = "DuplicateIdentifier"
	KindNoCandidates         ErrorKind = "NoCandidates"
	KindInvalidVoteData      ErrorKind = "InvalidVoteData"
	KindInconsistentTotals   ErrorKind = "InconsistentTotals"
	KindSelfSupportForbidden ErrorKind = "SelfSupportForbidden"
	KindAlreadySupporting    ErrorKind = "AlreadySupporting"
	KindNotSupporting        ErrorKind = "NotSupporting"
	KindNotFound             ErrorKind = "NotFound"
	KindInvalidInput         ErrorKind = "InvalidInput"
	KindConflict             ErrorKind = "Conflict"
	KindNotPublished         ErrorKind = "NotPublished"
	KindForbidden            ErrorKind = "Forbidden"
)

// CoreError is raised by the workflow and poll engine. Value holds the
// offending value (state name, identifier, option id, ...) when there is one.
type CoreError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Value   any       `json:"value,omitempty"`
}

func (e *CoreError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any CoreError of the same kind, so errors.Is(err, ErrNotFound) works
// for every not found error regardless of message.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrConfiguration        = &CoreError{Kind: KindConfiguration, Message: "invalid configuration"}
	ErrInvalidTransition    = &CoreError{Kind: KindInvalidTransition, Message: "action not permitted in the current state"}
	ErrAlreadyAssigned      = &CoreError{Kind: KindAlreadyAssigned, Message: "identifier already assigned"}
	ErrDuplicateIdentifier  = &CoreError{Kind: KindDuplicateIdentifier, Message: "identifier already in use"}
	ErrNoCandidates         = &CoreError{Kind: KindNoCandidates, Message: "no eligible candidates"}
	ErrInvalidVoteData      = &CoreError{Kind: KindInvalidVoteData, Message: "invalid vote data"}
	ErrInconsistentTotals   = &CoreError{Kind: KindInconsistentTotals, Message: "votes exceed votes cast"}
	ErrSelfSupportForbidden = &CoreError{Kind: KindSelfSupportForbidden, Message: "submitters cannot support their own document"}
	ErrAlreadySupporting    = &CoreError{Kind: KindAlreadySupporting, Message: "already supporting"}
	ErrNotSupporting        = &CoreError{Kind: KindNotSupporting, Message: "not supporting"}
	ErrNotFound             = &CoreError{Kind: KindNotFound, Message: "not found"}
	ErrInvalidInput         = &CoreError{Kind: KindInvalidInput, Message: "invalid input"}
	ErrConflict             = &CoreError{Kind: KindConflict, Message: "E_VERSION"}
	ErrNotPublished         = &CoreError{Kind: KindNotPublished, Message: "poll results are not published"}
	ErrForbidden            = &CoreError{Kind: KindForbidden, Message: "forbidden"}
)

// NewError builds a CoreError of the given kind.
func NewError(kind ErrorKind, value any, format string, args ...any) *CoreError {
	return &CoreError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Value:   value,
	}
}

// KindOf returns the kind of a core error anywhere in err's chain, or "" for
// infrastructure errors.
func KindOf(err error) ErrorKind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
