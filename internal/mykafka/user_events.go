package mykafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type CartProvisioner interface {
	ProvisionCart(ctx context.Context, userID uuid.UUID) (bool, error)
}

type userEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"userID"`
	UserIDAlt string `json:"UserID"`
}

// UserEventsHandler provisions a cart for every registered user. Other event
// types and malformed payloads are skipped.
func UserEventsHandler(p CartProvisioner, log *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev userEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Warn("user_event_malformed", "offset", msg.Offset, "error", err)
			return nil
		}
		switch ev.Type {
		case "user_registered", "user_registrated":
		default:
			return nil
		}

		raw := ev.UserID
		if raw == "" {
			raw = ev.UserIDAlt
		}
		if raw == "" {
			raw = string(msg.Key)
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			log.Warn("user_event_bad_id", "offset", msg.Offset, "user_id", raw)
			return nil
		}

		created, err := p.ProvisionCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("provision cart for %s: %w", userID, err)
		}
		log.Info("cart_provisioned", "user_id", userID, "created", created)
		return nil
	}
}
