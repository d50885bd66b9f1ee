// Package messaging publica los eventos del ledger en Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

const writeTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implementa inventory.EventPublisher. La llave del mensaje es el product_id
// para que los eventos de un producto conserven su orden dentro de la partición.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher construye el writer sobre los brokers y el tópico indicados.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}}
}

// PublishMovementRecorded publica stock.movement_recorded.
func (p *KafkaPublisher) PublishMovementRecorded(ctx context.Context, event inventory.MovementRecordedEvent) error {
	return p.publish(ctx, inventory.EventMovementRecorded, event.ProductID, event.OccurredAt, event)
}

// PublishLowStock publica stock.low_stock.
func (p *KafkaPublisher) PublishLowStock(ctx context.Context, event inventory.LowStockEvent) error {
	return p.publish(ctx, inventory.EventLowStock, event.ProductID, event.OccurredAt, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType, key string, at time.Time, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to kafka: %w", eventType, err)
	}
	return nil
}

// Close vacía el buffer del writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
