package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes form a closed set. Handlers map them onto HTTP statuses and
// clients are expected to switch on them rather than on message text.
const (
	CodeNotFound                = "NOT_FOUND"
	CodeValidation              = "VALIDATION_ERROR"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeConflict                = "CONFLICT"
	CodeInternal                = "INTERNAL_ERROR"
	CodeBadRequest              = "BAD_REQUEST"
	CodeTimeout                 = "TIMEOUT"
	CodeUnavailable             = "SERVICE_UNAVAILABLE"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeOutOfWindow             = "OUT_OF_WINDOW"
	CodeInvalidRecurrenceWindow = "INVALID_RECURRENCE_WINDOW"
	CodeInvalidRecurrenceType   = "INVALID_RECURRENCE_TYPE"
	CodeNotEditable             = "NOT_EDITABLE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
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

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// OutOfWindow signals that a session start falls outside the bookable
// scheduling window (current month through end of next month).
func OutOfWindow(message string) *AppError {
	return &AppError{
		Code:       CodeOutOfWindow,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func InvalidRecurrenceWindow(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidRecurrenceWindow,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func InvalidRecurrenceType(recurrenceType string) *AppError {
	return &AppError{
		Code:       CodeInvalidRecurrenceType,
		Message:    fmt.Sprintf("unrecognized recurrence type: %s", recurrenceType),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"recurrence_type": recurrenceType,
		},
	}
}

// NotEditable signals a reschedule attempt inside the cutoff window or on a
// session whose status no longer permits changes.
func NotEditable(message string) *AppError {
	return &AppError{
		Code:       CodeNotEditable,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
