package config

import (
	"errors"
	"fmt"
)

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	need := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	need(c.DatabaseURL != "", "missing required env DATABASE_URL")
	need(len(c.JWTAccessSecret) > 0, "missing required env JWT_SECRET")
	need(c.ServerPort > 0 && c.ServerPort < 65536, "SERVER_PORT out of range: %d", c.ServerPort)

	switch c.AutoMigrate {
	case "", "off", "sql", "gorm":
	default:
		errs = append(errs, fmt.Errorf("unknown AUTO_MIGRATE mode %q", c.AutoMigrate))
	}

	if c.RazorpayKeyID != "" {
		need(c.RazorpayKeySecret != "", "RAZORPAY_KEY_ID is set but RAZORPAY_KEY_SECRET is empty")
	}
	if c.PaypalClientID != "" {
		need(c.PaypalSecret != "", "PAYPAL_CLIENT_ID is set but PAYPAL_SECRET is empty")
		need(c.PaypalINRUSD > 0, "PAYPAL_INR_USD_RATE must be positive")
	}
	need(c.PaymentTimeout > 0, "PAYMENT_TIMEOUT must be positive")

	return errors.Join(errs...)
}
