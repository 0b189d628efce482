package promo

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Reason is the closed set of business-rule failures a promo code check can report.
type Reason string

const (
	ReasonNotFound             Reason = "not_found"
	ReasonInactive             Reason = "inactive"
	ReasonOutOfWindow          Reason = "out_of_window"
	ReasonGlobalLimitReached   Reason = "global_limit_reached"
	ReasonCustomerLimitReached Reason = "customer_limit_reached"
	ReasonBelowMinimum         Reason = "below_minimum"
)

// Message returns the default user-facing text for the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonNotFound:
		return "promo code not found"
	case ReasonInactive:
		return "promo code is not active"
	case ReasonOutOfWindow:
		return "promo code is not valid at this time"
	case ReasonGlobalLimitReached:
		return "promo code usage limit has been reached"
	case ReasonCustomerLimitReached:
		return "you have reached the usage limit for this promo code"
	case ReasonBelowMinimum:
		return "order does not meet the minimum amount for this promo code"
	default:
		panic(fmt.Sprintf("promo: unknown reason %q", string(r)))
	}
}

// RuleError is an expected, user-displayable rejection of a promo code.
type RuleError struct {
	Reason  Reason
	Message string
}

func (e *RuleError) Error() string { return e.Message }

// Is matches any RuleError with the same reason, so callers can write
// errors.Is(err, promo.ErrInactive) regardless of the message.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Reason == e.Reason
}

func newRuleError(r Reason) *RuleError {
	return &RuleError{Reason: r, Message: r.Message()}
}

var (
	ErrNotFound             = newRuleError(ReasonNotFound)
	ErrInactive             = newRuleError(ReasonInactive)
	ErrOutOfWindow          = newRuleError(ReasonOutOfWindow)
	ErrGlobalLimitReached   = newRuleError(ReasonGlobalLimitReached)
	ErrCustomerLimitReached = newRuleError(ReasonCustomerLimitReached)
	ErrBelowMinimum         = newRuleError(ReasonBelowMinimum)
)

func belowMinimum(minimum decimal.Decimal) *RuleError {
	return &RuleError{
		Reason:  ReasonBelowMinimum,
		Message: fmt.Sprintf("minimum order amount of %s required", minimum.StringFixed(2)),
	}
}
