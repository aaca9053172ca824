package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/streamhub/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
	entitlementdomain "github.com/smallbiznis/streamhub/internal/entitlement/domain"
	organizationdomain "github.com/smallbiznis/streamhub/internal/organization/domain"
	plandomain "github.com/smallbiznis/streamhub/internal/plan/domain"
	"github.com/smallbiznis/streamhub/internal/realtime"
	signupdomain "github.com/smallbiznis/streamhub/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	taskdomain "github.com/smallbiznis/streamhub/internal/task/domain"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"github.com/smallbiznis/streamhub/pkg/validation"
)

type errorPayload struct {
	Type    string                  `json:"type"`
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
	Balance *int64                  `json:"balance,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// balanceError carries the caller's balance alongside a refused debit.
type balanceError struct {
	err     error
	balance int64
}

func (e *balanceError) Error() string { return e.err.Error() }
func (e *balanceError) Unwrap() error { return e.err }

func withBalance(err error, balance int64) error {
	return &balanceError{err: err, balance: balance}
}

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

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return validation.New("request", "invalid_request", "invalid request")
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *validation.Errors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Fields,
		}
	}

	if code, field, ok := validationCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []validation.FieldError{
				{Field: field, Code: code, Message: "invalid value"},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized), authdomain.IsAuthError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, entitlementdomain.ErrInsufficientCredits):
		payload := errorPayload{
			Type:    "insufficient_credits",
			Message: "not enough credits",
		}
		var bErr *balanceError
		if errors.As(err, &bErr) {
			balance := bErr.balance
			payload.Balance = &balance
		}
		return http.StatusPaymentRequired, payload
	case errors.Is(err, entitlementdomain.ErrNoActiveSubscription):
		return http.StatusForbidden, errorPayload{
			Type:    "no_active_subscription",
			Message: "no active subscription",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, authdomain.ErrAccountExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "an account with this email already exists",
		}
	case errors.Is(err, entitlementdomain.ErrIdempotencyKeyReused):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "idempotency key was already used for another item",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, signupdomain.ErrProvisioningFailed):
		return http.StatusInternalServerError, errorPayload{
			Type:    "provisioning_failed",
			Message: "account created but provisioning did not complete, sign up again to retry",
		}
	case errors.Is(err, entitlementdomain.ErrStoreUnavailable),
		errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, realtime.ErrHubUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// validationCode maps single-value domain sentinels to a field failure.
func validationCode(err error) (code, field string, ok bool) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request", "request", true
	case errors.Is(err, signupdomain.ErrInvalidRequest):
		return "invalid_request", "request", true
	case errors.Is(err, signupdomain.ErrInvalidPlan):
		return "invalid_plan", "plan", true
	case errors.Is(err, authdomain.ErrWeakPassword):
		return "weak_password", "password", true
	case errors.Is(err, entitlementdomain.ErrInvalidItem):
		return "invalid_item", "item", true
	case errors.Is(err, organizationdomain.ErrInvalidSlug):
		return "invalid_slug", "slug", true
	case errors.Is(err, realtime.ErrInvalidTable):
		return "invalid_table", "table", true
	}
	return "", "", false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, entitlementdomain.ErrItemNotFound),
		errors.Is(err, catalogdomain.ErrChannelNotFound),
		errors.Is(err, catalogdomain.ErrContentNotFound),
		errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, organizationdomain.ErrOrganizationNotFound),
		errors.Is(err, taskdomain.ErrTaskNotFound),
		errors.Is(err, authdomain.ErrAccountNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog returns the (type, code) pair recorded on the request
// log line.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError && payload.Type == "internal_error" {
		return payload.Type, "unhandled"
	}
	return payload.Type, code
}
