package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	CurrencyINR = "INR"
	CurrencyUSD = "USD"

	StatusCompleted = "COMPLETED"
)

type SessionRequest struct {
	Amount   decimal.Decimal // major units, INR
	Currency string
	Receipt  string
}

// Session is what the client needs to open the provider's checkout.
type Session struct {
	ID         string          `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	ApproveURL string          `json:"approve_url,omitempty"`
	KeyID      string          `json:"key_id,omitempty"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// ProviderError carries the provider's own explanation when it has one.
type ProviderError struct {
	Provider   string
	StatusCode int
	Reason     string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }
