package billing

import (
	"context"
	"errors"
	"time"
)

// SubscriptionPeriod is how far a payment pushes the subscription end.
const SubscriptionPeriod = 4 * 7 * 24 * time.Hour

// Error kinds returned by a Provider. Implementations wrap these so callers
// can match with errors.Is; the wrapped text is for logs only.
var (
	ErrCardDeclined     = errors.New("card declined")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidRequest   = errors.New("invalid provider request")
	ErrProvider         = errors.New("payment provider error")
)

type Customer struct {
	ID    string
	Email string
}

// Provider is the recurring-billing backend. A subscription whose first
// payment does not go through is reported as ErrCardDeclined.
type Provider interface {
	// CreateCustomer registers the customer with the card token and
	// subscribes it to plan. It returns the provider customer id.
	CreateCustomer(ctx context.Context, email, cardToken, plan string) (string, error)
	// Resubscribe puts a new card on an existing customer and subscribes it
	// to plan again.
	Resubscribe(ctx context.Context, customerID, cardToken, plan string) error
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error)
	// CancelSubscription stops renewal immediately, not at period end.
	CancelSubscription(ctx context.Context, customerID string) error
}

// NextSubscriptionEnd is the expiry granted by a payment made at now.
func NextSubscriptionEnd(now time.Time) time.Time {
	return now.Add(SubscriptionPeriod)
}
