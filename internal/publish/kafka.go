package publish

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/model"
)

// Kafka message headers set on every document.
const (
	HeaderRunID   = "schemapub-run-id"
	HeaderVersion = "schemapub-schema-version"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the kafka sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// Kafka announces each published document on a topic, keyed by system
// component so all versions of one component land on one partition.
type Kafka struct {
	writer messageWriter
	topic  string
	log    *logger.Logger
}

// NewKafka builds a sink backed by a kafka-go Writer. No connection is made
// until the first publish.
func NewKafka(cfg KafkaConfig, log *logger.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "kafka topic is required")
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: false,
	}
	return newKafka(w, cfg.Topic, log), nil
}

func newKafka(w messageWriter, topic string, log *logger.Logger) *Kafka {
	if log == nil {
		log = logger.Nop()
	}
	return &Kafka{writer: w, topic: topic, log: log.Component("kafka")}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Publish(ctx context.Context, doc *model.Document) error {
	body, err := doc.Marshal()
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to encode document", err)
	}

	version := ""
	if doc.Schema != nil {
		version = doc.Schema.Version
	}

	msg := kafka.Message{
		Key:   []byte(doc.SystemComponentName),
		Value: body,
		Headers: []kafka.Header{
			{Key: HeaderRunID, Value: []byte(RunIDFrom(ctx))},
			{Key: HeaderVersion, Value: []byte(version)},
		},
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return mapKafkaError(err)
	}

	k.log.DebugWith("document announced", map[string]any{"topic": k.topic, "bytes": len(body)})
	return nil
}

// Close flushes and closes the underlying writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func mapKafkaError(err error) *errs.Error {
	// A batch failure reports one error per message; there is only one.
	cause := err
	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		for _, e := range writeErrs {
			if e != nil {
				cause = e
				break
			}
		}
	}

	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "kafka write timed out", err)
	}

	var kerr kafka.Error
	if errors.As(cause, &kerr) {
		switch kerr {
		case kafka.TopicAuthorizationFailed, kafka.ClusterAuthorizationFailed, kafka.SASLAuthenticationFailed:
			return errs.Wrap(errs.ErrKindPermissionDenied, "kafka rejected credentials", err)
		case kafka.UnknownTopicOrPartition:
			return errs.Wrap(errs.ErrKindNotFound, "kafka topic does not exist", err)
		case kafka.MessageSizeTooLarge:
			return errs.Wrap(errs.ErrKindInvalidInput, "document exceeds kafka message size", err)
		}
		return errs.Wrap(errs.ErrKindPublishFailed, "kafka rejected document", err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, "kafka unreachable", err)
}
