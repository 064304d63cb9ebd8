package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, ParseBrokers(" kafka-1:9092, ,kafka-2:9092,"))
	assert.Empty(t, ParseBrokers(""))
}

func TestMemoryPublisher(t *testing.T) {
	var m Memory
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_ = m.Publish(context.Background(), New(OrderCreated, id, nil))
		}(uint(i))
	}
	wg.Wait()
	assert.Len(t, m.Events(), 20)

	ev := New(PaymentConfirmed, 3, map[string]any{"paymentId": "pay_1"})
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, uint(3), ev.OrderID)
}

func TestKafkaWriterIsAsyncAndReportsFailedBatches(t *testing.T) {
	var dropped int
	var last error
	k := NewKafka([]string{"localhost:9092"}, "orders.events", func(n int, err error) {
		dropped += n
		last = err
	})
	defer k.Close()

	assert.True(t, k.writer.Async)
	assert.LessOrEqual(t, k.writer.BatchTimeout, 10*time.Millisecond)

	k.writer.Completion([]kafka.Message{{}, {}}, nil)
	assert.Zero(t, dropped)

	k.writer.Completion([]kafka.Message{{}, {}}, errors.New("broker unreachable"))
	assert.Equal(t, 2, dropped)
	assert.EqualError(t, last, "broker unreachable")
}
