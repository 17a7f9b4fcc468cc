package domain

import (
	"errors"
	"net/http"
)

// ErrorCode classifies an AppError.
type ErrorCode int

const (
	CodeInternal ErrorCode = iota
	CodeNotFound
	CodeValidation
	// CodeNetwork is a transport failure reaching the sales backend.
	CodeNetwork
	// CodeUpstream is a non-2xx or unreadable reply from the sales backend.
	CodeUpstream
)

var codeNames = map[ErrorCode]string{
	CodeInternal:   "internal",
	CodeNotFound:   "not_found",
	CodeValidation: "validation",
	CodeNetwork:    "network",
	CodeUpstream:   "upstream",
}

// String returns the short name used in log attributes.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

var statusByCode = map[ErrorCode]int{
	CodeInternal:   http.StatusInternalServerError,
	CodeNotFound:   http.StatusNotFound,
	CodeValidation: http.StatusBadRequest,
	CodeNetwork:    http.StatusBadGateway,
	CodeUpstream:   http.StatusBadGateway,
}

// AppError is an error with a code the HTTP layer maps to a status and a
// message safe to show to users. Err keeps the cause for logs.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError with the same code, so errors.Is(err, ErrUpstream)
// holds for every upstream failure regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Sentinels, one per code. Compare with errors.Is or the Is* helpers.
var (
	ErrInternal   = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrNotFound   = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrValidation = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrNetwork    = &AppError{Code: CodeNetwork, Message: "sales backend unreachable"}
	ErrUpstream   = &AppError{Code: CodeUpstream, Message: "sales backend rejected the request"}
)

// NewAppError creates an AppError wrapping err, which may be nil.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func IsNotFound(err error) bool   { return hasCode(err, CodeNotFound) }
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }
func IsInternal(err error) bool   { return hasCode(err, CodeInternal) }
func IsNetwork(err error) bool    { return hasCode(err, CodeNetwork) }
func IsUpstream(err error) bool   { return hasCode(err, CodeUpstream) }

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// CodeOf returns the code of the AppError in err's chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatusCode maps err to a response status. Anything that is not an
// AppError with a known code is a 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if status, ok := statusByCode[appErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}
