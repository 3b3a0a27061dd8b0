package notify

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

func sampleOrder() *models.Order {
	pid := uuid.New()
	coupon := uuid.New()
	return &models.Order{
		ID:                   uuid.New(),
		CustomerEmail:        "buyer@example.com",
		Address:              models.ShippingAddress{AddressLine1: "12 MG Road", City: "Bengaluru", State: "KA", Country: "IN", Pincode: "560001"},
		Items:                []models.OrderItem{{ProductID: pid, Quantity: 2, UnitPrice: decimal.NewFromInt(100)}},
		OrderPrice:           decimal.NewFromInt(200),
		DiscountedOrderPrice: decimal.NewFromInt(150),
		CouponID:             &coupon,
		PaymentID:            "order_abc",
	}
}

func TestOrderConfirmation(t *testing.T) {
	o := sampleOrder()
	msg, err := OrderConfirmation(o, map[uuid.UUID]string{o.Items[0].ProductID: "Notebook <A5>"})
	require.NoError(t, err)

	require.Equal(t, "buyer@example.com", msg.To)
	require.Contains(t, msg.Subject, o.ID.String())
	require.Contains(t, msg.Text, "Notebook <A5> x2 @ ₹100.00 = ₹200.00")
	require.Contains(t, msg.Text, "Discount: -₹50.00")
	require.Contains(t, msg.Text, "Total paid: ₹150.00")
	require.Contains(t, msg.HTML, "Notebook &lt;A5&gt;")
}

// fakeSMTP serves one session on conn. rcptCode overrides the RCPT reply.
func fakeSMTP(t *testing.T, conn net.Conn, rcptCode string, got chan<- string) {
	t.Helper()
	defer conn.Close()
	tp := textproto.NewConn(conn)
	reply := func(line string) { _ = tp.PrintfLine("%s", line) }

	reply("220 smtp.test ESMTP")
	var data strings.Builder
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch {
		case cmd == "EHLO" || cmd == "HELO":
			reply("250 smtp.test")
		case strings.HasPrefix(cmd, "MAIL"):
			data.WriteString(line + "\n")
			reply("250 OK")
		case strings.HasPrefix(cmd, "RCPT"):
			data.WriteString(line + "\n")
			if rcptCode != "" {
				reply(rcptCode)
				continue
			}
			reply("250 OK")
		case cmd == "DATA":
			reply("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			data.Write(body)
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			got <- data.String()
			return
		default:
			reply("502 unsupported")
		}
	}
}

func pipeDialer(serve func(net.Conn)) dialFunc {
	return func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		go serve(server)
		return client, nil
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer("smtp.test", 2525, "", "", "shop@example.com")
	require.Equal(t, "smtp.test:2525", m.addr)

	got := make(chan string, 1)
	m.dial = pipeDialer(func(c net.Conn) { fakeSMTP(t, c, "", got) })

	err := m.Send(context.Background(), Message{To: "a@b.c", Subject: "hi", Text: "plain", HTML: "<b>rich</b>"})
	require.NoError(t, err)

	session := <-got
	require.Contains(t, session, "MAIL FROM:<shop@example.com>")
	require.Contains(t, session, "RCPT TO:<a@b.c>")
	require.Contains(t, session, "From: shop@example.com\n")
	require.Contains(t, session, "multipart/alternative")
	require.Contains(t, session, "plain")
	require.Contains(t, session, "<b>rich</b>")

	m.dial = pipeDialer(func(c net.Conn) { fakeSMTP(t, c, "550 no such user", got) })
	require.ErrorContains(t, m.Send(context.Background(), Message{To: "a@b.c"}), "no such user")

	m.dial = func(context.Context, string, string) (net.Conn, error) { return nil, errors.New("connection refused") }
	require.ErrorContains(t, m.Send(context.Background(), Message{To: "a@b.c"}), "connection refused")

	require.Error(t, m.Send(context.Background(), Message{}))
}

func TestSMTPMailer_ContextBoundsStalledServer(t *testing.T) {
	m := NewSMTPMailer("smtp.test", 25, "", "", "shop@example.com")
	closed := make(chan struct{})
	// accepts the connection but never greets
	m.dial = pipeDialer(func(c net.Conn) {
		_, _ = io.Copy(io.Discard, c)
		close(closed)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Send(ctx, Message{To: "a@b.c"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection left open after the deadline")
	}
}
