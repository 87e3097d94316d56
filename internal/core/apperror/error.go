// Package apperror carries errors that reach API clients. Each error has a
// stable code, a message in Portuguese shown to the user, optional details
// and the HTTP status the API answers with.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInternal               = "INTERNAL_ERROR"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeDuplicate              = "DUPLICATE_ENTRY"
)

// AppError is an error with a client-facing shape.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	HTTPStatus int   `json:"-"`
	Err        error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds one detail entry.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error. It is logged, never rendered.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func newError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// NewValidation reports malformed input (400).
func NewValidation(message string) *AppError {
	return newError(http.StatusBadRequest, CodeValidation, message)
}

// NewNotFound reports a missing record (404). entity is the user-facing
// name, e.g. "requisição".
func NewNotFound(entity string, id any) *AppError {
	return newError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s não encontrado(a)", entity)).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewBusinessRule reports a procurement rule the request breaks (422).
// Codes are owned by the domain package raising them.
func NewBusinessRule(code, message string) *AppError {
	return newError(http.StatusUnprocessableEntity, code, message)
}

// NewInvalidTransition reports a workflow move the state machine forbids
// (422). The message is shown as-is.
func NewInvalidTransition(entity, from, to string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeInvalidTransition,
		fmt.Sprintf("Transição inválida para %s: %s → %s", entity, from, to)).
		WithDetail("entity", entity).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NewConcurrentModification reports that the row changed under the
// caller, typically a workflow state that moved meanwhile (409).
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(http.StatusConflict, CodeConcurrentModification,
		"Registro alterado por outro usuário. Atualize e tente novamente.").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewInternal hides err behind a generic message (500).
func NewInternal(err error) *AppError {
	return newError(http.StatusInternalServerError, CodeInternal, "Erro interno do servidor").WithCause(err)
}

func NewUnauthorized(message string) *AppError {
	return newError(http.StatusUnauthorized, CodeUnauthorized, message)
}

func NewForbidden(message string) *AppError {
	return newError(http.StatusForbidden, CodeForbidden, message)
}

func NewConflict(message string) *AppError {
	return newError(http.StatusConflict, CodeConflict, message)
}

// NewDuplicate reports a unique value already in use (409).
func NewDuplicate(entity, field, value string) *AppError {
	return newError(http.StatusConflict, CodeDuplicate, fmt.Sprintf("%s com este %s já existe", entity, field)).
		WithDetail("entity", entity).
		WithDetail("field", field).
		WithDetail("value", value)
}

// AsAppError finds an AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsNotFound reports a CodeNotFound error.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
