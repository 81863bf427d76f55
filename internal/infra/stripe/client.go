// Package stripe implements billing.Provider on top of stripe-go.
package stripe

import (
	"context"
	"errors"
	"fmt"

	"accounts-app/internal/domain/billing"

	stripeapi "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

type Client struct {
	api *client.API
}

// New builds a client bound to secretKey; nothing is stored in stripe.Key.
func New(secretKey string) *Client {
	return NewWithBackends(secretKey, nil)
}

// NewWithBackends lets callers point the client at another API host.
func NewWithBackends(secretKey string, backends *stripeapi.Backends) *Client {
	return &Client{api: client.New(secretKey, backends)}
}

func (c *Client) CreateCustomer(ctx context.Context, email, cardToken, plan string) (string, error) {
	params := &stripeapi.CustomerParams{
		Email:  stripeapi.String(email),
		Source: stripeapi.String(cardToken),
	}
	params.Context = ctx
	params.AddMetadata("plan", plan)

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", classify(err))
	}

	if err := c.subscribe(ctx, cus.ID, plan); err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (c *Client) Resubscribe(ctx context.Context, customerID, cardToken, plan string) error {
	params := &stripeapi.CustomerParams{
		Source: stripeapi.String(cardToken),
	}
	params.Context = ctx

	if _, err := c.api.Customers.Update(customerID, params); err != nil {
		return fmt.Errorf("update card of %s: %w", customerID, classify(err))
	}
	return c.subscribe(ctx, customerID, plan)
}

// subscribe charges the first invoice up front; a subscription that is not
// paid immediately counts as a declined card.
func (c *Client) subscribe(ctx context.Context, customerID, plan string) error {
	params := &stripeapi.SubscriptionParams{
		Customer: stripeapi.String(customerID),
		Items: []*stripeapi.SubscriptionItemsParams{
			{Price: stripeapi.String(plan)},
		},
		PaymentBehavior: stripeapi.String("error_if_incomplete"),
	}
	params.Context = ctx

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return fmt.Errorf("subscribe customer %s: %w", customerID, classify(err))
	}

	switch NormalizeStatus(sub.Status) {
	case "active", "trialing":
		return nil
	}
	return fmt.Errorf("subscribe customer %s: %w: subscription %s is %s",
		customerID, billing.ErrCardDeclined, sub.ID, sub.Status)
}

func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*billing.Customer, error) {
	params := &stripeapi.CustomerParams{}
	params.Context = ctx

	cus, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve customer %s: %w", customerID, classify(err))
	}
	if cus.Deleted {
		return nil, fmt.Errorf("retrieve customer %s: %w", customerID, billing.ErrCustomerNotFound)
	}
	return &billing.Customer{ID: cus.ID, Email: cus.Email}, nil
}

func (c *Client) CancelSubscription(ctx context.Context, customerID string) error {
	listParams := &stripeapi.SubscriptionListParams{
		Customer: stripeapi.String(customerID),
	}
	listParams.Context = ctx

	var ids []string
	it := c.api.Subscriptions.List(listParams)
	for it.Next() {
		sub := it.Subscription()
		if isLive(sub.Status) {
			ids = append(ids, sub.ID)
		}
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("list subscriptions of %s: %w", customerID, classify(err))
	}

	for _, id := range ids {
		cancelParams := &stripeapi.SubscriptionCancelParams{}
		cancelParams.Context = ctx
		if _, err := c.api.Subscriptions.Cancel(id, cancelParams); err != nil {
			return fmt.Errorf("cancel subscription %s: %w", id, classify(err))
		}
	}
	return nil
}

// classify maps a stripe-go error onto the billing error kinds.
func classify(err error) error {
	var stripeErr *stripeapi.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %v", billing.ErrProvider, err)
	}

	switch {
	case stripeErr.Type == stripeapi.ErrorTypeCard:
		return fmt.Errorf("%w: %s", billing.ErrCardDeclined, stripeErr.Msg)
	case stripeErr.Code == stripeapi.ErrorCodeResourceMissing:
		return fmt.Errorf("%w: %s", billing.ErrCustomerNotFound, stripeErr.Msg)
	case stripeErr.Type == stripeapi.ErrorTypeInvalidRequest:
		return fmt.Errorf("%w: %s", billing.ErrInvalidRequest, stripeErr.Msg)
	default:
		return fmt.Errorf("%w: %s", billing.ErrProvider, stripeErr.Msg)
	}
}
