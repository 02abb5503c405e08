// Package kafka carries storage cleanup tasks over a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"resource-portal-go/internal/config"
	"resource-portal-go/pkg/log"
	"resource-portal-go/pkg/tasks"
)

// MaxAttempts is how many times a task is tried before its offset is committed anyway.
const MaxAttempts = 3

// TaskProcessor handles one decoded cleanup task.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.StorageCleanupTask) error
}

// Producer publishes cleanup tasks.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds a producer for cfg.Topic.
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.BrokerList()...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka producer initialized")
	return &Producer{writer: w}
}

// EnqueueCleanup publishes task keyed by its object key.
func (p *Producer) EnqueueCleanup(ctx context.Context, task tasks.StorageCleanupTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.ObjectKey),
		Value: body,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// DiscardQueue stands in for the producer when Kafka is disabled.
type DiscardQueue struct{}

func (DiscardQueue) EnqueueCleanup(_ context.Context, task tasks.StorageCleanupTask) error {
	log.Warnw("kafka disabled, dropping storage cleanup task",
		"object_key", task.ObjectKey, "resource_id", task.ResourceID, "reason", task.Reason)
	return nil
}

// messageReader is the subset of *kafka.Reader the consumer loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads cleanup tasks and hands them to a processor. A failing task is
// retried up to MaxAttempts times before its offset is committed; attempts are
// counted in Redis so they survive a restart.
type Consumer struct {
	reader    messageReader
	rdb       *redis.Client
	processor TaskProcessor
	backoff   time.Duration
}

// NewConsumer creates a consumer group reader on cfg.Topic.
func NewConsumer(cfg config.KafkaConfig, rdb *redis.Client, processor TaskProcessor) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.BrokerList(),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, rdb: rdb, processor: processor, backoff: 2 * time.Second}
}

func attemptsKey(objectKey string) string {
	return fmt.Sprintf("kafka:attempts:%s", objectKey)
}

// Run consumes until ctx is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info("Kafka cleanup consumer started")
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Error("close kafka reader", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}
		c.handle(ctx, m)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	var task tasks.StorageCleanupTask
	if err := json.Unmarshal(m.Value, &task); err != nil || task.ObjectKey == "" {
		log.Errorf("undecodable cleanup task at offset %d: %s", m.Offset, string(m.Value))
		c.commit(ctx, m)
		return
	}

	key := attemptsKey(task.ObjectKey)
	for {
		err := c.processor.Process(ctx, task)
		if err == nil {
			_ = c.rdb.Del(ctx, key).Err()
			c.commit(ctx, m)
			return
		}
		log.Errorf("cleanup of %s failed: %v", task.ObjectKey, err)

		attempts, incErr := c.rdb.Incr(ctx, key).Result()
		if incErr != nil {
			// without a counter the offset stays uncommitted and the task is redelivered after a restart
			log.Error("count cleanup attempt", incErr)
			return
		}
		_ = c.rdb.Expire(ctx, key, 24*time.Hour).Err()
		if attempts >= MaxAttempts {
			log.Errorf("cleanup of %s failed %d times, giving up", task.ObjectKey, attempts)
			_ = c.rdb.Del(ctx, key).Err()
			c.commit(ctx, m)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff * time.Duration(attempts)):
		}
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Errorf("commit kafka offset %d: %v", m.Offset, err)
	}
}
