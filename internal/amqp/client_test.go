package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"dompet/internal/core"
	"dompet/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"closed channel", amqp091.ErrClosed, true},
		{"access refused", errors.New("Exception (403) Reason: \"ACCESS_REFUSED\""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

type recordingPublisher struct {
	exchange, key string
	msg           amqp091.Publishing
	err           error
}

func (p *recordingPublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return p.err
}

func TestRequestUpgradePublishesMessage(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	pub := &recordingPublisher{}
	c := &Client{pub: pub, exchangeName: "dompet", queueName: "upgrades", logger: log.Nop(), now: func() time.Time { return at }}

	err := c.RequestUpgrade(context.Background(), core.UpgradeRequest{UserID: 42, Tier: core.Free, Feature: core.FeatureVoice})
	if err != nil {
		t.Fatalf("RequestUpgrade: %v", err)
	}
	if pub.exchange != "dompet" || pub.key != "upgrades" || pub.msg.Type != MessageTypeUpgradeRequest {
		t.Fatalf("published to %s/%s type %s", pub.exchange, pub.key, pub.msg.Type)
	}
	msg, err := UpgradeRequestMessageFromJSON(pub.msg.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.UserID != 42 || msg.Tier != "free" || msg.Feature != "voice" || !msg.RequestedAt.Equal(at) {
		t.Fatalf("message = %+v", msg)
	}
}

func TestRequestUpgradePublishError(t *testing.T) {
	pub := &recordingPublisher{err: amqp091.ErrClosed}
	c := &Client{pub: pub, logger: log.Nop(), now: time.Now}
	if err := c.RequestUpgrade(context.Background(), core.UpgradeRequest{UserID: 1}); !errors.Is(err, amqp091.ErrClosed) {
		t.Fatalf("err = %v", err)
	}
}
