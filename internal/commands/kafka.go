package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/decision"
)

// KafkaPublisher publishes commands to a Kafka topic, keyed by mint so all
// commands for one token land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
	Topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, Topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, cmd *decision.Command) error {
	msg, err := kafkaMessage(cmd)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// kafkaMessage keys cmd by mint and carries its JSON wire form.
func kafkaMessage(cmd *decision.Command) (kafka.Message, error) {
	value, err := encode(cmd)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(cmd.Mint), Value: value}, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads published commands back, for downstream tooling.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID, topic string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	})
	return &KafkaConsumer{reader: reader}
}

// Consume passes each message to handler until ctx is done or handler fails.
// Undecodable messages are skipped.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(context.Context, Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("kafka read: %w", err)
		}

		var m Message
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			continue
		}

		if err := handler(ctx, m); err != nil {
			return err
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
