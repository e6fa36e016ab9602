// Package riskbus publishes a Redis pub/sub notification whenever a
// dispatch transitions a session into the high risk level, so that
// other instances or downstream alerting can react without polling the
// session store.
package riskbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riskguard/engine/internal/riskmodel"
)

// Escalation is the payload published on a high-risk transition.
type Escalation struct {
	SessionID string           `json:"session_id"`
	Module    riskmodel.Module `json:"module"`
	Score     int              `json:"score"`
	Reasons   []string         `json:"reasons"`
	At        time.Time        `json:"at"`
}

// Publisher notifies subscribers about risk escalations.
type Publisher interface {
	PublishEscalation(ctx context.Context, sessionID string, module riskmodel.Module, resp riskmodel.RiskResponse) error
	Close() error
}

// RedisPublisher is the default Publisher, backed by Redis pub/sub.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to addr and returns a Publisher broadcasting
// on channel.
func NewRedisPublisher(addr, channel string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to risk bus redis: %w", err)
	}

	if channel == "" {
		channel = "riskguard:escalations"
	}

	slog.Info("risk bus publisher initialized", "addr", addr, "channel", channel)
	return &RedisPublisher{client: client, channel: channel}, nil
}

// PublishEscalation broadcasts an Escalation only when resp.Level is high;
// calls for lower levels are a silent no-op.
func (p *RedisPublisher) PublishEscalation(ctx context.Context, sessionID string, module riskmodel.Module, resp riskmodel.RiskResponse) error {
	if resp.Level != riskmodel.LevelHigh {
		return nil
	}

	payload, err := json.Marshal(Escalation{
		SessionID: sessionID,
		Module:    module,
		Score:     resp.Score,
		Reasons:   resp.Reasons,
		At:        time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshaling escalation: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing escalation: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NoopPublisher discards every escalation; used when the risk bus is
// disabled in configuration.
type NoopPublisher struct{}

func (NoopPublisher) PublishEscalation(context.Context, string, riskmodel.Module, riskmodel.RiskResponse) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
