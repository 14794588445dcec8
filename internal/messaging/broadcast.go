package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event is a realtime change notice keyed by trip.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TripID     int64     `json:"tripId"`
	SeatIDs    []string  `json:"seatIds,omitempty"`
	BookingIDs []int64   `json:"bookingIds,omitempty"`
	GroupID    string    `json:"groupId,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Broadcaster is the realtime broadcast collaborator.
type Broadcaster interface {
	Broadcast(ctx context.Context, e Event) error
	Close() error
}

// LogBroadcaster only logs; used when no Kafka brokers are configured.
type LogBroadcaster struct{}

func (LogBroadcaster) Broadcast(_ context.Context, e Event) error {
	logrus.WithFields(logrus.Fields{
		"type":    e.Type,
		"trip_id": e.TripID,
	}).Debug("broadcast (no brokers configured)")
	return nil
}

func (LogBroadcaster) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBroadcaster writes events to one topic, keyed by trip id so a trip's events stay ordered.
type KafkaBroadcaster struct {
	w messageWriter
}

func NewKafkaBroadcaster(brokers []string, topic string) *KafkaBroadcaster {
	return &KafkaBroadcaster{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (k *KafkaBroadcaster) Broadcast(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.TripID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaBroadcaster) Close() error {
	return k.w.Close()
}
