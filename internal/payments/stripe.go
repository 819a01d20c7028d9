package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

var (
	ErrDisabled      = errors.New("payments: processor not configured")
	ErrInvalidAmount = errors.New("payments: amount must be positive")
)

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type IntentCreator interface {
	CreateIntent(ctx context.Context, price decimal.Decimal) (*Intent, error)
}

// ToMinorUnits converts a price in major units (dollars) to the processor's
// integer minor units (cents), rounding half away from zero.
func ToMinorUnits(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}

type Stripe struct {
	api      *client.API
	currency string
}

func NewStripe(secretKey, currency string) *Stripe {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &Stripe{api: client.New(secretKey, nil), currency: currency}
}

func (s *Stripe) CreateIntent(ctx context.Context, price decimal.Decimal) (*Intent, error) {
	amount := ToMinorUnits(price)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("payments: create intent: %w", err)
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// Disabled is used when no processor key is configured.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, decimal.Decimal) (*Intent, error) {
	return nil, ErrDisabled
}
