package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/telecomservice/internal/auth/domain"
	"github.com/smallbiznis/telecomservice/internal/authorization"
	consumptiondomain "github.com/smallbiznis/telecomservice/internal/consumption/domain"
)

// JSON-RPC error codes.
const (
	CodeAccessDenied    = -32001
	CodeAccessError     = -32002
	CodeUserError       = -32003
	CodeNotFound        = -32004
	CodeTooManyRequests = -32005
	CodeInvalidRequest  = -32600
	CodeInternalError   = -32603
)

const (
	forbiddenMsg       = "You are not allowed to perform this operation."
	tooManyRequestsMsg = "Too many authentication attempts. Try again later."
	invalidRequestMsg  = "invalid request"
	internalErrorMsg   = "internal server error"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
)

type rpcErrorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type rpcError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    rpcErrorData `json:"data"`
}

func newRPCError(code int, name, message string) rpcError {
	return rpcError{
		Code:    code,
		Message: message,
		Data:    rpcErrorData{Name: name, Message: message},
	}
}

// ErrorHandlingMiddleware renders the last handler error as a JSON-RPC error.
// The HTTP status stays 200.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(http.StatusOK, rpcResponse{
			JSONRPC: jsonRPCVersion,
			ID:      rpcID(c),
			Error:   mapErrorPtr(lastErr.Err),
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapErrorPtr(err error) *rpcError {
	mapped := mapError(err)
	return &mapped
}

func mapError(err error) rpcError {
	if err == nil {
		return newRPCError(CodeInternalError, "internal_error", internalErrorMsg)
	}

	switch {
	case isAuthenticationError(err):
		return newRPCError(CodeAccessDenied, "access_denied", consumptiondomain.AccessDeniedMsg)
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return newRPCError(CodeAccessError, "access_error", forbiddenMsg)
	case errors.Is(err, ErrTooManyRequests):
		return newRPCError(CodeTooManyRequests, "too_many_requests", tooManyRequestsMsg)
	case errors.Is(err, ErrInvalidRequest):
		return newRPCError(CodeInvalidRequest, "invalid_request", invalidRequestMsg)
	case errors.Is(err, consumptiondomain.ErrNotFound):
		return newRPCError(CodeNotFound, "user_error", consumptiondomain.MissingConsumptionMsg)
	}

	if msg, ok := consumptiondomain.UserMessage(err); ok {
		return newRPCError(CodeUserError, "user_error", msg)
	}
	return newRPCError(CodeInternalError, "internal_error", internalErrorMsg)
}

func isAuthenticationError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, consumptiondomain.ErrMissingCompany):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger with the RPC error name and code.
func classifyErrorForLog(err error) (string, string) {
	mapped := mapError(err)
	return mapped.Data.Name, err.Error()
}
