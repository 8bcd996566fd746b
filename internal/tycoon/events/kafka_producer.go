package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the kafka broadcaster.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Partitions   int
	QueueSize    int
	WriteTimeout time.Duration
	// SetupTimeout bounds the retries of topic creation.
	SetupTimeout time.Duration
}

// Producer writes events to a kafka topic from a bounded in-memory queue.
type Producer struct {
	writer       KafkaWriter
	events       chan Event
	logger       *zap.Logger
	closeChan    chan struct{}
	writeTimeout time.Duration
	now          func() time.Time
}

// NewProducer ensures the topic exists and starts the delivery loop.
// Topic creation is retried with backoff; a failure is logged and the
// producer starts anyway so the simulation never waits on kafka.
func NewProducer(ctx context.Context, cfg KafkaConfig, logger *zap.Logger) *Producer {
	logger = logger.Named("kafka_producer")
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 3
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	if len(cfg.Brokers) > 0 {
		if err := ensureTopic(ctx, cfg); err != nil {
			logger.Warn("failed to create topic (may already exist)", zap.Error(err))
		}
	}

	p := &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			Topic:        cfg.Topic,
			Async:        false,
			WriteTimeout: cfg.WriteTimeout,
		},
		events:       make(chan Event, cfg.QueueSize),
		logger:       logger,
		closeChan:    make(chan struct{}),
		writeTimeout: cfg.WriteTimeout,
		now:          time.Now,
	}

	go p.eventLoop()
	return p
}

func ensureTopic(ctx context.Context, cfg KafkaConfig) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.SetupTimeout
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = 10 * time.Second
	}
	return backoff.Retry(func() error {
		conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		err = conn.CreateTopics(kafka.TopicConfig{
			Topic:             cfg.Topic,
			NumPartitions:     cfg.Partitions,
			ReplicationFactor: 1,
		})
		if errors.Is(err, kafka.TopicAlreadyExists) {
			return nil
		}
		return err
	}, backoff.WithContext(b, ctx))
}

// Publish enqueues an event, dropping it when the queue is full.
func (p *Producer) Publish(channel string, name Name, payload Payload) {
	event := Event{Channel: channel, Name: name, Payload: payload, At: p.now().UTC()}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event", string(name)),
			zap.String("channel", channel),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
			p.sendEvent(ctx, event)
			cancel()
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event", string(event.Name)),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Channel),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event", string(event.Name)),
			zap.String("channel", event.Channel),
		)
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
