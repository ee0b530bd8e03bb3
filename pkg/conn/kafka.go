package conn

import (
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"
)

type KafkaOption struct {
	Brokers []string
	Topic   string
}

// NewKafkaWriter returns an async batching writer. kafka-go dials lazily, so
// broker reachability surfaces on the first write.
func NewKafkaWriter(option KafkaOption) (*kafka.Writer, error) {
	if len(option.Brokers) == 0 {
		return nil, errors.New("kafka brokers cannot be empty")
	}
	if option.Topic == "" {
		return nil, errors.New("kafka topic cannot be empty")
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(option.Brokers...),
		Topic:                  option.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  true,
		AllowAutoTopicCreation: true,
	}, nil
}
