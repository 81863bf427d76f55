package stripe

import (
	"strings"

	stripeapi "github.com/stripe/stripe-go/v75"
)

// NormalizeStatus folds Stripe subscription statuses into
// none|active|trialing|past_due|canceled.
func NormalizeStatus(s stripeapi.SubscriptionStatus) string {
	status := strings.TrimSpace(string(s))
	switch status {
	case "":
		return "none"
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	default:
		return status
	}
}

// isLive reports whether a subscription still needs cancelling.
func isLive(s stripeapi.SubscriptionStatus) bool {
	switch NormalizeStatus(s) {
	case "none", "canceled":
		return false
	}
	return true
}
