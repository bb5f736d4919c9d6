package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an application error rendered to clients as JSON.
type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
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

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NewKind is New with a stable machine-readable kind for clients that branch
// on the failure (e.g. "cart_empty").
func NewKind(code int, kind, message string, err error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// ErrorMiddleware renders the last error attached with c.Error.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		var appErr *Error
		if !errors.As(c.Errors.Last().Err, &appErr) {
			appErr = Internal(c.Errors.Last().Err)
		}
		c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr})
	}
}
