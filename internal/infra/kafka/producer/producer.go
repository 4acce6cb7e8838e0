package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/config"
	"github.com/aliskhannn/media-uniquer/internal/model"
)

// Producer publishes terminal status events.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	cfg      *config.Kafka
}

// New creates a new Producer writing to the events topic.
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{
		Client:   wbfkafka.NewProducer(cfg.Brokers, cfg.EventsTopic),
		cfg:      cfg,
		strategy: s,
	}
}

// Produce sends ev keyed by task id so that events of one task stay ordered.
func (p *Producer) Produce(ctx context.Context, ev model.StatusEvent) error {
	key, data, err := Encode(ev)
	if err != nil {
		return err
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send status event: %w", err)
	}

	return nil
}

// OnTerminal publishes the final status of a task. Failures are logged.
func (p *Producer) OnTerminal(ctx context.Context, t model.Task, s model.Status) {
	if err := p.Produce(ctx, model.NewStatusEvent(t, s)); err != nil {
		zlog.Logger.Err(err).
			Str("task_id", t.ID).
			Str("topic", p.cfg.EventsTopic).
			Msg("failed to publish status event")
	}
}

// Encode returns the message key and JSON payload for ev.
func Encode(ev model.StatusEvent) ([]byte, []byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal status event: %w", err)
	}

	return []byte(ev.TaskID), data, nil
}
