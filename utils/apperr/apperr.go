package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/property-booking/logger"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUpstream
	KindBadGateway
	KindAuth
	KindUnauthorized
	KindForbidden
)

// Error is the error type every controller responds with.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindAuth:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBadGateway:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func Validation(code, message string, details any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Details: details}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Conflict(code, message string, details any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message, Details: details}
}

// Upstream wraps a persistence failure. The cause is logged, never returned
// to the caller.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: "UPSTREAM_ERROR", Message: message, Err: err}
}

// BadGateway wraps a payment processor failure.
func BadGateway(code, message string, err error) *Error {
	return &Error{Kind: KindBadGateway, Code: code, Message: message, Err: err}
}

// Auth is a rejected signature or credential on a route that answers 400.
func Auth(code, message string) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: message}
}

func Unauthorized(code, message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: message}
}

func Forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

// Body builds the JSON response body for err.
func Body(e *Error) gin.H {
	body := gin.H{"error": e.Message, "code": e.Code}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return body
}

// Respond writes err as a JSON error response and aborts the chain.
// Errors that are not *Error become a sanitised 500.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "Internal server error", Err: err}
	}

	status := appErr.Status()
	if status >= http.StatusInternalServerError {
		logger.ErrorLogger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), appErr)
	} else {
		logger.InfoLogger.Infof("%s %s rejected with %d %s", c.Request.Method, c.FullPath(), status, appErr.Code)
	}

	c.AbortWithStatusJSON(status, Body(appErr))
}
