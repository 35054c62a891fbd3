// Package settlement implements the payment settlement and gating workflow:
// fee computation, pre-submission checks, and the idempotent transaction and
// subscription-payment lifecycles against the payment gateway.
package settlement

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a business rejection or failure. Rejections are ordinary
// return values, not panics; handlers map them to HTTP statuses.
type Kind string

const (
	KindValidation             Kind = "validation_error"
	KindNotFound               Kind = "not_found"
	KindDuplicateEmail         Kind = "duplicate_email"
	KindLimitReached           Kind = "limit_reached"
	KindPaymentSettingsMissing Kind = "payment_settings_missing"
	KindGatewayUnavailable     Kind = "gateway_unavailable"
	KindGatewayRejected        Kind = "gateway_rejected"
	KindInternal               Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a bare settlement error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError attaches a cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from any error, defaulting to internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to the status handlers should respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateEmail, KindLimitReached:
		return http.StatusConflict
	case KindPaymentSettingsMissing:
		return http.StatusUnprocessableEntity
	case KindGatewayUnavailable:
		return http.StatusBadGateway
	case KindGatewayRejected:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
