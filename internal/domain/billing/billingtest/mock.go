// Package billingtest provides a testify mock of billing.Provider.
package billingtest

import (
	"context"

	"accounts-app/internal/domain/billing"

	"github.com/stretchr/testify/mock"
)

type Provider struct {
	mock.Mock
}

var _ billing.Provider = (*Provider)(nil)

func (p *Provider) CreateCustomer(ctx context.Context, email, cardToken, plan string) (string, error) {
	args := p.Called(ctx, email, cardToken, plan)
	return args.String(0), args.Error(1)
}

func (p *Provider) Resubscribe(ctx context.Context, customerID, cardToken, plan string) error {
	args := p.Called(ctx, customerID, cardToken, plan)
	return args.Error(0)
}

func (p *Provider) RetrieveCustomer(ctx context.Context, customerID string) (*billing.Customer, error) {
	args := p.Called(ctx, customerID)
	customer, _ := args.Get(0).(*billing.Customer)
	return customer, args.Error(1)
}

func (p *Provider) CancelSubscription(ctx context.Context, customerID string) error {
	args := p.Called(ctx, customerID)
	return args.Error(0)
}
