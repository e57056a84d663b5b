package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/decision"
)

// Sink receives every command the decision engine emits.
type Sink interface {
	Publish(ctx context.Context, cmd *decision.Command) error
	Close() error
}

// Message is the wire form of a published command.
type Message struct {
	Text      string    `json:"text"` // "/buy <mint> <size>" or "/sell <mint> <pct>%"
	Action    string    `json:"action"`
	Mint      string    `json:"mint"`
	Amount    string    `json:"amount"`
	Wallet    string    `json:"wallet,omitempty"`
	Signature string    `json:"signature,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
}

// NewMessage builds the wire form of cmd.
func NewMessage(cmd *decision.Command, now time.Time) Message {
	return Message{
		Text:      cmd.String(),
		Action:    cmd.Action,
		Mint:      cmd.Mint,
		Amount:    cmd.Amount,
		Wallet:    cmd.Wallet,
		Signature: cmd.Signature,
		IssuedAt:  now.UTC(),
	}
}

func encode(cmd *decision.Command) ([]byte, error) {
	b, err := json.Marshal(NewMessage(cmd, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	return b, nil
}

// Publisher is the narrow view of a Redis-backed broadcaster.
type Publisher interface {
	PublishCommand(ctx context.Context, payload []byte) error
}

// RedisSink broadcasts commands on the Redis commands channel.
type RedisSink struct {
	pub Publisher
}

func NewRedisSink(pub Publisher) *RedisSink {
	return &RedisSink{pub: pub}
}

func (s *RedisSink) Publish(ctx context.Context, cmd *decision.Command) error {
	b, err := encode(cmd)
	if err != nil {
		return err
	}
	return s.pub.PublishCommand(ctx, b)
}

func (s *RedisSink) Close() error { return nil }

// LogSink only logs commands. Used when no broker is configured.
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, cmd *decision.Command) error {
	s.logger.WithFields(logrus.Fields{
		"command":   cmd.String(),
		"wallet":    cmd.Wallet,
		"signature": cmd.Signature,
	}).Info("trade command")
	return nil
}

func (s *LogSink) Close() error { return nil }
