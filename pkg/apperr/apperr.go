// Package apperr holds the error taxonomy shared by services and the HTTP layer.
// Callers branch on the kind with errors.Is against the exported sentinels.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

type Kind string

const (
	KindValidation            Kind = "VALIDATION_FAILED"
	KindMultiSellerCart       Kind = "MULTI_SELLER_CART"
	KindDeadlinePassed        Kind = "DEADLINE_PASSED"
	KindMenuInactive          Kind = "MENU_INACTIVE"
	KindMenuNotFound          Kind = "MENU_NOT_FOUND"
	KindItemNotFound          Kind = "ITEM_NOT_FOUND"
	KindItemUnavailable       Kind = "ITEM_UNAVAILABLE"
	KindTotalMismatch         Kind = "TOTAL_MISMATCH"
	KindAddressRequired       Kind = "ADDRESS_REQUIRED"
	KindOrderTypeUnavailable  Kind = "ORDER_TYPE_UNAVAILABLE"
	KindAreaNotServed         Kind = "AREA_NOT_SERVED"
	KindOrderNotFound         Kind = "ORDER_NOT_FOUND"
	KindIllegalTransition     Kind = "ILLEGAL_TRANSITION"
	KindStaleStatus           Kind = "STALE_STATUS"
	KindPaymentPending        Kind = "PAYMENT_PENDING"
	KindForbidden             Kind = "FORBIDDEN"
	KindSignatureInvalid      Kind = "SIGNATURE_INVALID"
	KindDuplicatePayment      Kind = "DUPLICATE_PAYMENT_ATTEMPT"
	KindPaymentMethodMismatch Kind = "PAYMENT_METHOD_MISMATCH"
	KindIntentMismatch        Kind = "INTENT_MISMATCH"
	KindGatewayUnavailable    Kind = "GATEWAY_UNAVAILABLE"
	KindGatewayRejected       Kind = "GATEWAY_REJECTED"
	KindInternal              Kind = "INTERNAL"
)

// Error is a classified failure. Two errors match under errors.Is when their kinds match.
type Error struct {
	Kind    Kind
	Message string
	Details []string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// With returns a copy of e carrying a more specific message.
func (e *Error) With(msg string, details ...string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Details: details}
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrValidation            = New(KindValidation, "validation failed")
	ErrMultiSellerCart       = New(KindMultiSellerCart, "all items must be from the same chef")
	ErrDeadlinePassed        = New(KindDeadlinePassed, "order deadline has passed for this menu")
	ErrMenuInactive          = New(KindMenuInactive, "menu is not available")
	ErrMenuNotFound          = New(KindMenuNotFound, "menu not found")
	ErrItemNotFound          = New(KindItemNotFound, "menu item not found in menu")
	ErrItemUnavailable       = New(KindItemUnavailable, "menu item is not available")
	ErrTotalMismatch         = New(KindTotalMismatch, "total amount mismatch")
	ErrAddressRequired       = New(KindAddressRequired, "delivery address is required")
	ErrOrderTypeUnavailable  = New(KindOrderTypeUnavailable, "order type not offered by this menu")
	ErrAreaNotServed         = New(KindAreaNotServed, "delivery area is not served by this menu")
	ErrOrderNotFound         = New(KindOrderNotFound, "order not found")
	ErrIllegalTransition     = New(KindIllegalTransition, "illegal status transition")
	ErrStaleStatus           = New(KindStaleStatus, "order status changed concurrently")
	ErrPaymentPending        = New(KindPaymentPending, "payment has not been completed")
	ErrForbidden             = New(KindForbidden, "forbidden")
	ErrSignatureInvalid      = New(KindSignatureInvalid, "payment verification failed")
	ErrDuplicatePayment      = New(KindDuplicatePayment, "order already paid with a different payment")
	ErrPaymentMethodMismatch = New(KindPaymentMethodMismatch, "payment method does not use the gateway")
	ErrIntentMismatch        = New(KindIntentMismatch, "gateway order does not belong to this order")
	ErrGatewayUnavailable    = New(KindGatewayUnavailable, "payment gateway unavailable")
	ErrGatewayRejected       = New(KindGatewayRejected, "payment gateway rejected the request")
)

// Problem is one entry of a ValidationError.
type Problem struct {
	Code    Kind   `json:"code"`
	Message string `json:"message"`
}

// ValidationError reports every problem found in a request at once.
type ValidationError struct {
	Problems []Problem
}

func (v *ValidationError) Error() string {
	msgs := make([]string, 0, len(v.Problems))
	for _, p := range v.Problems {
		msgs = append(msgs, p.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Is matches ErrValidation and the sentinel of any contained problem.
func (v *ValidationError) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == KindValidation {
		return true
	}
	for _, p := range v.Problems {
		if p.Code == t.Kind {
			return true
		}
	}
	return false
}

func (v *ValidationError) Add(kind Kind, msg string) {
	v.Problems = append(v.Problems, Problem{Code: kind, Message: msg})
}

// AddErr records a problem under the sentinel kind, defaulting to its message.
func (v *ValidationError) AddErr(e *Error, msg string) {
	if msg == "" {
		msg = e.Message
	}
	v.Add(e.Kind, msg)
}

// Err returns nil when nothing was recorded.
func (v *ValidationError) Err() error {
	if len(v.Problems) == 0 {
		return nil
	}
	return v
}

// KindOf classifies err; unknown errors are internal.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the status code surfaced to clients.
func HTTPStatus(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		for _, p := range ve.Problems {
			if statusFor(p.Code) != http.StatusNotFound {
				return http.StatusBadRequest
			}
		}
		return http.StatusNotFound
	}
	return statusFor(KindOf(err))
}

func statusFor(k Kind) int {
	switch k {
	case KindValidation, KindMultiSellerCart, KindDeadlinePassed, KindMenuInactive,
		KindItemUnavailable, KindTotalMismatch, KindAddressRequired, KindOrderTypeUnavailable,
		KindAreaNotServed, KindSignatureInvalid, KindPaymentMethodMismatch, KindIntentMismatch:
		return http.StatusBadRequest
	case KindMenuNotFound, KindItemNotFound, KindOrderNotFound:
		return http.StatusNotFound
	case KindIllegalTransition, KindStaleStatus, KindPaymentPending, KindDuplicatePayment:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindGatewayUnavailable:
		return http.StatusServiceUnavailable
	case KindGatewayRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
