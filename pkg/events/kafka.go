package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Kafka writes events as JSON keyed by order id, so one order's events stay on one partition.
// Writes are asynchronous: Publish only queues the message and returns.
type Kafka struct {
	writer    *kafka.Writer
	onFailure func(dropped int, err error)
}

// NewKafka builds the writer. onFailure, when set, receives every batch the
// writer gave up on.
func NewKafka(brokers []string, topic string, onFailure func(dropped int, err error)) *Kafka {
	k := &Kafka{onFailure: onFailure}
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Async:        true,
		Completion:   k.completed,
	}
	return k
}

func (k *Kafka) completed(msgs []kafka.Message, err error) {
	if err != nil && k.onFailure != nil {
		k.onFailure(len(msgs), err)
	}
}

func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.OrderID), 10)),
		Value: data,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
