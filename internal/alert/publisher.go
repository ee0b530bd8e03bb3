package alert

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"

	"cryptoflow/internal/model"
	"cryptoflow/internal/model/enum"
)

const defaultWriteTimeout = 3 * time.Second

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher forwards derived alerts to a Kafka topic. Each message is keyed
// by symbol so one symbol's alerts stay ordered within a partition.
type Publisher struct {
	w       Writer
	timeout time.Duration
}

func NewPublisher(w Writer) *Publisher {
	return &Publisher{w: w, timeout: defaultWriteTimeout}
}

// Kinds lists the event kinds the publisher accepts.
func (p *Publisher) Kinds() []enum.EventKind {
	return []enum.EventKind{enum.EventLiquidationAlert, enum.EventClimacticMove}
}

func (p *Publisher) HandleEvent(ctx context.Context, ev model.Event) error {
	msg, err := message(ev)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, *msg); err != nil {
		return errors.Wrap(err, "publish alert").With("symbol", ev.EventSymbol())
	}
	return nil
}

func message(ev model.Event) (*kafka.Message, error) {
	var env model.Envelope
	switch e := ev.(type) {
	case model.LiquidationAlert:
		env = model.NewEnvelope(model.MsgLiquidationAlert, enum.TopicLiquidations.String(), e)
	case model.ClimacticMove:
		env = model.NewEnvelope(model.MsgClimacticAlert, enum.TopicClimactic.String(), e)
	default:
		return nil, nil
	}

	b, err := env.Encode()
	if err != nil {
		return nil, err
	}
	return &kafka.Message{
		Key:   []byte(ev.EventSymbol()),
		Value: b,
		Time:  time.UnixMilli(env.Timestamp),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(env.Type)},
		},
	}, nil
}
