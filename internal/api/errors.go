package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/philipparndt/partquote/internal/pipeline"
	"github.com/philipparndt/partquote/pkg/stl"
)

// APIError is the JSON body of every failed request
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAPIError(status int, code, message string, cause error) *APIError {
	err := &APIError{Status: status, Code: code, Message: message}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewBadRequestError creates a 400 error
func NewBadRequestError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadRequest, "BAD_REQUEST", message, cause)
}

// NewNotFoundError creates a 404 error
func NewNotFoundError(resource, id string) *APIError {
	return newAPIError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found: %s", resource, id), nil)
}

// NewConflictError creates a 409 error
func NewConflictError(message string, cause error) *APIError {
	return newAPIError(http.StatusConflict, "CONFLICT", message, cause)
}

// NewUnprocessableError creates a 422 error for files that cannot be decoded
func NewUnprocessableError(message string, cause error) *APIError {
	return newAPIError(http.StatusUnprocessableEntity, "UNPROCESSABLE_FILE", message, cause)
}

// NewInternalError creates a 500 error
func NewInternalError(message string, cause error) *APIError {
	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", message, cause)
}

// NewServiceUnavailableError creates a 503 error
func NewServiceUnavailableError(message string) *APIError {
	return newAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, nil)
}

// runError maps a pipeline failure to an APIError
func runError(err error) *APIError {
	var decodeErr *stl.DecodeError
	var unsupported *pipeline.UnsupportedFormatError
	switch {
	case errors.As(err, &unsupported):
		return NewBadRequestError("unsupported file format", err)
	case errors.As(err, &decodeErr):
		return NewUnprocessableError("failed to decode mesh", err)
	case errors.Is(err, pipeline.ErrRunSuperseded), errors.Is(err, pipeline.ErrCancelled):
		return NewConflictError("run did not complete", err)
	default:
		return NewInternalError("failed to process file", err)
	}
}

// ErrorHandler renders errors as APIError JSON.
// Usage: e.HTTPErrorHandler = api.ErrorHandler(logger)
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &httpErr):
			apiErr = &APIError{
				Status:  httpErr.Code,
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", httpErr.Message),
			}
		default:
			apiErr = NewInternalError("an unexpected error occurred", err)
		}

		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(apiErr.Status)
		} else {
			writeErr = c.JSON(apiErr.Status, apiErr)
		}
		if writeErr != nil {
			logger.Warn().Err(writeErr).Msg("failed to write error response")
		}
	}
}
