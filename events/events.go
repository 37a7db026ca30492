package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const TypeBookingStatusChanged = "booking.status_changed"

type Event struct {
	Type        string    `json:"type"`
	BookingID   uuid.UUID `json:"booking_id"`
	ClientID    uuid.UUID `json:"client_id"`
	CounselorID uuid.UUID `json:"counselor_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

var Default Publisher = NoopPublisher{}

// Init switches Default to Kafka when KAFKA_BROKERS is set.
func Init() {
	brokers := config.Strings("KAFKA_BROKERS")
	if len(brokers) == 0 {
		logger.Log.Info("KAFKA_BROKERS not set, domain events are not published")
		return
	}
	Default = NewKafkaPublisher(brokers, config.Config("KAFKA_TOPIC"))
	logger.Log.Infow("✅ Kafka publisher initialized", "brokers", brokers)
}

// Publish sends e through Default. Failures are logged, never returned: the
// database is the source of truth and events are a feed for other consumers.
func Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if err := Default.Publish(ctx, e); err != nil {
		logger.Log.Warnw("failed to publish event", "type", e.Type, "booking_id", e.BookingID, "error", err)
	}
}

type KafkaPublisher struct {
	writer *kafkago.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: 5 * time.Second,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(e.BookingID.String()),
		Value: b,
		Time:  e.At,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, e Event) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Close() error { return nil }
