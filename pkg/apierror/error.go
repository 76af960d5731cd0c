// Package apierror defines the typed errors that cross the HTTP boundary
// and their mapping to HTTP status codes.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/moogar0880/problems"
)

// Error is a stable, client-branchable error kind carried across the HTTP
// boundary. Title is the wire-visible error string; Err carries optional
// details for logging, never serialised under a different key.
type Error struct {
	Title      string `json:"title"`
	Err        any    `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %+v", e.Title, e.Err)
	}
	return e.Title
}

// NewError builds an Error carrying no HTTP status override; StatusCode
// derives the status from Title.
func NewError(title string) *Error {
	return &Error{Title: title}
}

// NewErrorStatus builds an Error with an explicit HTTP status.
func NewErrorStatus(title string, status int) *Error {
	return &Error{Title: title, HTTPStatus: status}
}

// NewErrorDetails builds an Error carrying details for logging.
func NewErrorDetails(title string, err any) *Error {
	return &Error{Title: title, Err: err}
}

// NewErrorFromError wraps an arbitrary error into an Error, recognising a
// handful of well-known error shapes from the binding/validation layer.
//
// Most internal errors reach here wrapped with additional context via
// fmt.Errorf("%w: ...", sentinel, ...); errors.As walks that chain so the
// wire-visible Title is still the sentinel's, not a generic fallback.
func NewErrorFromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if jsonUnmarshalTypeError, ok := err.(*json.UnmarshalTypeError); ok {
		return &Error{Title: ErrBadFormat.Title, Err: map[string]any{
			"field":    jsonUnmarshalTypeError.Field,
			"expected": jsonUnmarshalTypeError.Type.Kind().String(),
		}, HTTPStatus: http.StatusBadRequest}
	}
	if jsonSyntaxError, ok := err.(*json.SyntaxError); ok {
		return &Error{Title: ErrBadFormat.Title, Err: map[string]any{
			"position": jsonSyntaxError.Offset,
		}, HTTPStatus: http.StatusBadRequest}
	}
	if validatorErr, ok := err.(validator.ValidationErrors); ok {
		return &Error{Title: ErrBadFormat.Title, Err: formatValidationErrors(validatorErr), HTTPStatus: http.StatusBadRequest}
	}

	return NewErrorDetails("internal", err.Error())
}

func formatValidationErrors(err validator.ValidationErrors) []map[string]any {
	v := make([]map[string]any, 0, len(err))
	for _, e := range err {
		v = append(v, map[string]any{
			"field":      e.Field(),
			"validation": e.Tag(),
		})
	}
	return v
}

// Problem404 builds the "not found" problem-details shape for routes that
// never matched.
func Problem404() *problems.Problem {
	return problems.NewStatusProblem(http.StatusNotFound)
}

// Sentinel error kinds, one per documented failure mode. Title is the
// stable string returned in the HTTP "error" field.
var (
	ErrBadFormat            = NewErrorStatus("ErrBadFormat", http.StatusBadRequest)
	ErrChainTooShort        = NewErrorStatus("ErrChainTooShort", http.StatusBadRequest)
	ErrCertChain            = NewErrorStatus("ErrCertChain", http.StatusBadRequest)
	ErrBadPointFormat       = NewErrorStatus("ErrBadPointFormat", http.StatusBadRequest)
	ErrAtFlagUnset          = NewErrorStatus("ErrAtFlagUnset", http.StatusBadRequest)
	ErrCredentialIDMismatch = NewErrorStatus("ErrCredentialIdMismatch", http.StatusBadRequest)
	ErrNonceMissing         = NewErrorStatus("ErrNonceMissing", http.StatusBadRequest)
	ErrNonceMismatch        = NewErrorStatus("ErrNonceMismatch", http.StatusBadRequest)
	ErrReplay               = NewErrorStatus("ErrReplay", http.StatusBadRequest)
	ErrBadSignature         = NewErrorStatus("ErrBadSignature", http.StatusBadRequest)
	ErrDeviceUnknown        = NewErrorStatus("ErrDeviceUnknown", http.StatusNotFound)
	ErrStoreUnavailable     = NewErrorStatus("ErrStoreUnavailable", http.StatusInternalServerError)
	ErrBrokerUnavailable    = NewErrorStatus("ErrBrokerUnavailable", http.StatusInternalServerError)
	ErrInternal             = NewErrorStatus("ErrInternal", http.StatusInternalServerError)
)

// StatusCode returns the HTTP status to use for err.
func StatusCode(err error) int {
	if apiErr, ok := err.(*Error); ok {
		if apiErr.HTTPStatus != 0 {
			return apiErr.HTTPStatus
		}
		return inferStatusFromTitle(apiErr.Title)
	}
	return http.StatusInternalServerError
}

func inferStatusFromTitle(title string) int {
	switch {
	case strings.HasPrefix(title, "Err") && strings.Contains(title, "Unknown"):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
