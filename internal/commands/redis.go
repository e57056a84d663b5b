package commands

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConsumeRedis passes each command received on ch to handler until ctx is
// done, ch closes or handler fails. Undecodable payloads are logged and
// skipped.
func ConsumeRedis(ctx context.Context, ch <-chan *redis.Message, handler func(context.Context, Message) error, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.New()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling command")
				continue
			}
			if err := handler(ctx, m); err != nil {
				return err
			}
		}
	}
}
