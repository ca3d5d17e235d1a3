// Package events publishes integration events to Kafka.
package events

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"
)

var ErrDisabled = errors.New("kafka disabled")

// Message is one event on its way to a topic.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
	Time    time.Time
}

type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...Message) error
	Close() error
}

type Client struct {
	Brokers []string
}

func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewWriter hashes keys so every event of one sale lands on the same partition.
func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// KafkaPublisher keeps one writer per topic.
type KafkaPublisher struct {
	client  *Client
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewKafkaPublisher(client *Client) (*KafkaPublisher, error) {
	if client == nil || !client.Enabled() {
		return nil, ErrDisabled
	}
	return &KafkaPublisher{client: client, writers: map[string]*kafka.Writer{}}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return p.writer(topic).WriteMessages(ctx, toKafka(msgs)...)
}

func (p *KafkaPublisher) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.writers[topic]
	if !ok {
		w = p.client.NewWriter(topic)
		p.writers[topic] = w
	}
	return w
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	for topic, w := range p.writers {
		err = multierr.Append(err, w.Close())
		delete(p.writers, topic)
	}
	return err
}

func toKafka(msgs []Message) []kafka.Message {
	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		at := m.Time
		if at.IsZero() {
			at = time.Now().UTC()
		}
		headers := make([]kafka.Header, 0, len(m.Headers))
		for k, v := range m.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		out[i] = kafka.Message{Key: []byte(m.Key), Value: m.Value, Headers: headers, Time: at}
	}
	return out
}
