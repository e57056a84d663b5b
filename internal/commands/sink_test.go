package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/decision"
)

type recordingPublisher struct {
	payloads [][]byte
	err      error
}

func (r *recordingPublisher) PublishCommand(_ context.Context, payload []byte) error {
	if r.err != nil {
		return r.err
	}
	r.payloads = append(r.payloads, payload)
	return nil
}

func TestNewMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cmd := &decision.Command{Action: decision.ActionSell, Mint: "M1", Amount: "100", Wallet: "W1", Signature: "sig"}

	m := NewMessage(cmd, now)
	assert.Equal(t, "/sell M1 100%", m.Text)
	assert.Equal(t, "sell", m.Action)
	assert.Equal(t, "W1", m.Wallet)
	assert.Equal(t, now, m.IssuedAt)
}

func TestRedisSink_Publish(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewRedisSink(pub)

	cmd := &decision.Command{Action: decision.ActionBuy, Mint: "M1", Amount: "0.01"}
	require.NoError(t, sink.Publish(context.Background(), cmd))
	require.Len(t, pub.payloads, 1)

	var m Message
	require.NoError(t, json.Unmarshal(pub.payloads[0], &m))
	assert.Equal(t, "/buy M1 0.01", m.Text)
	assert.Equal(t, "M1", m.Mint)
	assert.NoError(t, sink.Close())
}

func TestRedisSink_PropagatesError(t *testing.T) {
	sink := NewRedisSink(&recordingPublisher{err: errors.New("redis down")})

	err := sink.Publish(context.Background(), &decision.Command{Action: decision.ActionBuy, Mint: "M1", Amount: "0.01"})
	assert.Error(t, err)
}

func TestLogSink_Publish(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := NewLogSink(logger)

	require.NoError(t, sink.Publish(context.Background(), &decision.Command{Action: decision.ActionBuy, Mint: "M1", Amount: "0.01"}))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "/buy M1 0.01", entry.Data["command"])
}
