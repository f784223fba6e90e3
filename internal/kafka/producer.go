// Package kafka wraps a Sarama sync producer, adapted from the upstream
// runner's producer: the same SyncProducer/ProducerMessage call shape,
// generalized from heartbeats keyed by scenario id to arbitrary JSON
// payloads keyed by camera name (the alert sink's use of it).
package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
)

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer dials brokers and returns a producer that publishes to topic.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer: producer,
		topic:    topic,
	}, nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

// SendAlert publishes payload to the configured topic, keyed by key (the
// alert's camera name, so a consumer can partition per camera).
func (p *Producer) SendAlert(key string, payload []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}
	_, _, err := p.producer.SendMessage(msg)
	return err
}
