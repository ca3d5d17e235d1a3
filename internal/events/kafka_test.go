package events

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientParsesBrokerList(t *testing.T) {
	client := NewClient(" kafka-1:9092, ,kafka-2:9092 ")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, client.Brokers)
	assert.True(t, client.Enabled())
	assert.False(t, NewClient("").Enabled())
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(NewClient(""))
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestWriterPerTopic(t *testing.T) {
	p, err := NewKafkaPublisher(NewClient("localhost:9092"))
	require.NoError(t, err)

	sales := p.writer("bookstore.sales")
	assert.Same(t, sales, p.writer("bookstore.sales"))
	assert.Equal(t, "bookstore.sales", sales.Topic)
	assert.IsType(t, &kafka.Hash{}, sales.Balancer)
	assert.Equal(t, kafka.RequireOne, sales.RequiredAcks)

	assert.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}

func TestToKafkaCopiesKeyHeadersAndTime(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msgs := toKafka([]Message{{
		Key:     "sale-1",
		Value:   []byte(`{"total":250}`),
		Headers: map[string]string{"event_id": "e-1"},
		Time:    at,
	}})

	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("sale-1"), msgs[0].Key)
	assert.Equal(t, at, msgs[0].Time)
	assert.Equal(t, []kafka.Header{{Key: "event_id", Value: []byte("e-1")}}, msgs[0].Headers)

	assert.False(t, toKafka([]Message{{Key: "k"}})[0].Time.IsZero())
}
