package events

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"teamflow/internal/domain/event"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"
)

// kafka.Writerのうち使う部分だけ（テストで差し替える）
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w       messageWriter
	now     func() time.Time
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ event.Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher は非同期のWriterを作る。
// 送信失敗はリクエストを止めずにログへ出す。
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Warn("kafka: delivery failed", "topic", topic, "messages", len(msgs), "error", err)
			}
		},
	}
	return newPublisher(w)
}

func newPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		w:       w,
		now:     func() time.Time { return time.Now().UTC() },
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, t event.Type, key string, payload any) error {
	at := p.now()

	env := event.Envelope{
		ID:         p.newID(at),
		Type:       t,
		OccurredAt: at,
		Payload:    payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(t)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func (p *KafkaPublisher) newID(at time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), p.entropy).String()
}
