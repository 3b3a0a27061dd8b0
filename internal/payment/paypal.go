package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	providerPaypal = "paypal"

	// tokens are refreshed this long before PayPal expires them
	tokenExpirySkew = time.Minute
)

type PaypalClient struct {
	clientID string
	secret   string
	baseURL  string
	inrToUSD decimal.Decimal
	tokens   TokenCache
	http     *http.Client
}

func NewPaypalClient(clientID, secret, baseURL string, inrToUSD float64, tokens TokenCache, timeout time.Duration) *PaypalClient {
	if tokens == nil {
		tokens = NewMemoryTokenCache()
	}
	return &PaypalClient{
		clientID: clientID,
		secret:   secret,
		baseURL:  strings.TrimRight(baseURL, "/"),
		inrToUSD: decimal.NewFromFloat(inrToUSD),
		tokens:   tokens,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type paypalToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrder struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
}

type paypalError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
	ErrorDescription string `json:"error_description"`
}

func (e paypalError) reason() string {
	if len(e.Details) > 0 && e.Details[0].Description != "" {
		return e.Details[0].Description
	}
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorDescription
}

// ToUSD converts an INR amount with the configured rate, rounded to cents.
func (c *PaypalClient) ToUSD(inr decimal.Decimal) decimal.Decimal {
	return inr.Mul(c.inrToUSD).Round(2)
}

func (c *PaypalClient) accessToken(ctx context.Context) (string, error) {
	cacheKey := "paypal:" + c.clientID
	if tok, ok, err := c.tokens.Get(ctx, cacheKey); err != nil {
		logging.FromContext(ctx).Warn("paypal_token_cache_get_failed", "error", err)
	} else if ok {
		return tok, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok paypalToken
	if err := c.do(req, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &ProviderError{Provider: providerPaypal, Reason: "empty access token"}
	}

	ttl := time.Duration(tok.ExpiresIn)*time.Second - tokenExpirySkew
	if ttl > 0 {
		if err := c.tokens.Set(ctx, cacheKey, tok.AccessToken, ttl); err != nil {
			logging.FromContext(ctx).Warn("paypal_token_cache_set_failed", "error", err)
		}
	}
	return tok.AccessToken, nil
}

// authorized builds a bearer request. requestID is sent as PayPal-Request-Id;
// PayPal replays the first response for a repeated id instead of acting twice.
func (c *PaypalClient) authorized(ctx context.Context, method, path, requestID string, body any) (*http.Request, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("paypal: marshal body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("paypal: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PayPal-Request-Id", requestID)
	return req, nil
}

func (c *PaypalClient) CreateSession(ctx context.Context, sr SessionRequest) (*Session, error) {
	usd := c.ToUSD(sr.Amount)
	requestID := "create-" + sr.Receipt
	if sr.Receipt == "" {
		requestID = "create-" + uuid.NewString()
	}
	req, err := c.authorized(ctx, http.MethodPost, "/v2/checkout/orders", requestID, paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: sr.Receipt,
			Amount:      paypalAmount{CurrencyCode: CurrencyUSD, Value: usd.StringFixed(2)},
		}},
	})
	if err != nil {
		return nil, err
	}

	var order paypalOrder
	if err := c.do(req, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, &ProviderError{Provider: providerPaypal, Reason: "empty order id"}
	}

	s := &Session{ID: order.ID, Amount: usd, Currency: CurrencyUSD}
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			s.ApproveURL = l.Href
			break
		}
	}
	return s, nil
}

// CaptureRequestID is stable per PayPal order so a retried capture is answered
// with the original result rather than ORDER_ALREADY_CAPTURED.
func CaptureRequestID(orderID string) string {
	return "capture-" + orderID
}

func (c *PaypalClient) Capture(ctx context.Context, orderID string) (*Capture, error) {
	req, err := c.authorized(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", CaptureRequestID(orderID), struct{}{})
	if err != nil {
		return nil, err
	}

	var order paypalOrder
	if err := c.do(req, &order); err != nil {
		return nil, err
	}
	return &Capture{ID: order.ID, Status: order.Status}, nil
}

func (c *PaypalClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &ProviderError{Provider: providerPaypal, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var perr paypalError
		_ = json.NewDecoder(resp.Body).Decode(&perr)
		return &ProviderError{Provider: providerPaypal, StatusCode: resp.StatusCode, Reason: perr.reason()}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: providerPaypal, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
