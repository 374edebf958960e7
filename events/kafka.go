package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// KafkaNotifier publishes events to a Kafka topic, keyed by account so that
// the events of one account stay ordered within a partition.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			Async:                  true,
			AllowAutoTopicCreation: true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.
						WithFields(log.Fields{"count": len(messages), "error": err}).
						Warn("Failed to publish events to kafka")
				}
			},
		},
	}
}

func (n *KafkaNotifier) Notify(e Event) {
	msg, err := message(e)
	if err != nil {
		log.WithFields(log.Fields{"kind": e.Kind, "error": err}).Warn("Failed to encode event")
		return
	}

	if err := n.writer.WriteMessages(context.Background(), msg); err != nil {
		log.WithFields(log.Fields{"kind": e.Kind, "error": err}).Warn("Failed to publish event to kafka")
	}
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func message(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(e.Account),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	}, nil
}
