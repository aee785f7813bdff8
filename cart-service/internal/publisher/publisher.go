package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Arish613/go-technician-sub001/cart-service/internal/domain"
	"github.com/Arish613/go-technician-sub001/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	DefaultTopic = "booking-requests"

	EventTypeBookingRequested = "booking_requested"
)

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends booking requests to Kafka, keyed by checkout id.
type KafkaPublisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     *zap.Logger
}

func NewKafkaPublisher(log *zap.Logger, topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, circuitbreaker.DefaultConfig("kafka-"+topic), log)
}

func newKafkaPublisher(w messageWriter, cfg circuitbreaker.Config, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		breaker: circuitbreaker.New[struct{}](cfg, log),
		log:     log,
	}
}

func (p *KafkaPublisher) PublishBooking(ctx context.Context, req *domain.BookingRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal booking request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(req.CheckoutID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeBookingRequested)},
		},
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to publish booking %s: %w", req.CheckoutID, err)
	}

	p.log.Info("booking published",
		zap.String("checkout_id", req.CheckoutID),
		zap.Int("items", req.Cart.ItemCount),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher only logs bookings. It stands in when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishBooking(_ context.Context, req *domain.BookingRequest) error {
	p.log.Info("booking requested",
		zap.String("checkout_id", req.CheckoutID),
		zap.String("session_id", req.SessionID),
		zap.String("customer", req.Contact.Name),
		zap.String("phone", req.Contact.Phone),
		zap.Int("items", req.Cart.ItemCount),
		zap.String("total", req.Cart.TotalAmount.String()),
		zap.String("currency", req.Cart.Currency),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
