package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const providerRazorpay = "razorpay"

type RazorpayClient struct {
	keyID   string
	secret  string
	baseURL string
	http    *http.Client
}

func NewRazorpayClient(keyID, secret, baseURL string, timeout time.Duration) *RazorpayClient {
	return &RazorpayClient{
		keyID:   keyID,
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// toPaise converts rupees to the integer minor unit Razorpay expects.
func toPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (c *RazorpayClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	currency := req.Currency
	if currency == "" {
		currency = CurrencyINR
	}
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   toPaise(req.Amount),
		Currency: currency,
		Receipt:  req.Receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay: marshal order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("razorpay: create request: %w", err)
	}
	httpReq.SetBasicAuth(c.keyID, c.secret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: providerRazorpay, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var perr razorpayError
		_ = json.NewDecoder(resp.Body).Decode(&perr)
		return nil, &ProviderError{Provider: providerRazorpay, StatusCode: resp.StatusCode, Reason: perr.Error.Description}
	}

	var order razorpayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, &ProviderError{Provider: providerRazorpay, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode order: %w", err)}
	}
	if order.ID == "" {
		return nil, &ProviderError{Provider: providerRazorpay, StatusCode: resp.StatusCode, Reason: "empty order id"}
	}

	return &Session{
		ID:       order.ID,
		Amount:   decimal.New(order.Amount, -2),
		Currency: order.Currency,
		KeyID:    c.keyID,
	}, nil
}

// Signature is hex(HMAC_SHA256(secret, orderID + "|" + paymentID)).
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	expected := Signature(c.secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
