package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	sdk "github.com/segmentio/kafka-go"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

const (
	kafkaTransactionTopic = "__transaction_state"
	kafkaSeedTopic        = "pw-e2e-orders"
	kafkaSeedMessages     = 10
)

// messageWriter is the part of *kafka.Writer used for seeding
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

// Kafka ingests topics from the broker. With seeding enabled a sample topic
// is produced before the group runs and is ingested alongside the
// transaction state topic.
type Kafka struct {
	serviceBase
	seeded    bool
	newWriter func(brokers []string, topic string) messageWriter
}

func NewKafka(env Env) *Kafka {
	k := &Kafka{newWriter: newKafkaWriter}
	k.serviceBase = newServiceBase(env, "Kafka", settings.Messaging, []string{
		"KAFKA_BOOTSTRAP_SERVERS",
		"KAFKA_SCHEMA_REGISTRY_URL",
	}, k)
	return k
}

func newKafkaWriter(brokers []string, topic string) messageWriter {
	return &sdk.Writer{
		Addr:                   sdk.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           sdk.RequireAll,
		Balancer:               &sdk.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// seedOrder is the payload written to the seed topic
type seedOrder struct {
	OrderID   string    `json:"order_id"`
	Service   string    `json:"service"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// brokers returns the configured seed brokers, falling back to the
// bootstrap servers the service connects with.
func (k *Kafka) brokers() []string {
	if len(k.env.KafkaBrokers) > 0 {
		return k.env.KafkaBrokers
	}
	var brokers []string
	for _, b := range strings.Split(k.cred("KAFKA_BOOTSTRAP_SERVERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Prepare produces the seed topic when seeding is enabled
func (k *Kafka) Prepare(ctx context.Context) error {
	if !k.env.SeedKafka {
		return nil
	}
	brokers := k.brokers()
	if len(brokers) == 0 {
		return fmt.Errorf("kafka seeding enabled but no brokers configured")
	}

	writer := k.newWriter(brokers, kafkaSeedTopic)
	defer writer.Close()

	msgs := make([]sdk.Message, 0, kafkaSeedMessages)
	now := time.Now().UTC()
	for i := range kafkaSeedMessages {
		order := seedOrder{
			OrderID:   fmt.Sprintf("%s-%03d", k.name, i),
			Service:   k.name,
			Sequence:  i,
			CreatedAt: now,
		}
		value, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("failed to encode seed message: %w", err)
		}
		msgs = append(msgs, sdk.Message{Key: []byte(order.OrderID), Value: value})
	}

	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to seed topic %s: %w", kafkaSeedTopic, err)
	}

	k.seeded = true
	k.logger.Info().
		Str("topic", kafkaSeedTopic).
		Int("messages", len(msgs)).
		Msg("Kafka topic seeded")
	return nil
}

func (k *Kafka) fillConnectionDetails(page browser.Page) error {
	return fillFields(page,
		field{"connection/bootstrapServers", k.cred("KAFKA_BOOTSTRAP_SERVERS")},
		field{"connection/schemaRegistryURL", k.cred("KAFKA_SCHEMA_REGISTRY_URL")},
	)
}

func (k *Kafka) fillIngestionDetails(page browser.Page) error {
	if err := addFilterPattern(page, "topicFilterPattern", kafkaTransactionTopic); err != nil {
		return err
	}
	if k.seeded {
		return addFilterPattern(page, "topicFilterPattern", kafkaSeedTopic)
	}
	return nil
}

func (k *Kafka) validateIngestionDetails(page browser.Page) error {
	if !k.seeded {
		return nil
	}
	return k.expectChildAsset(page, "topics", kafkaSeedTopic)
}
