package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/config"
)

const fetchBackoff = 500 * time.Millisecond

// submitHandler handles media submission messages.
type submitHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// messageReader is the part of the Kafka client the loop depends on.
type messageReader interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// Consumer reads submission messages from the intake topic and passes them
// to the handler.
type Consumer struct {
	Client   *wbfkafka.Consumer
	reader   messageReader
	handler  submitHandler
	cfg      *config.Kafka
	strategy retry.Strategy
}

// New creates a new Consumer.
func New(cfg *config.Kafka, s retry.Strategy, h submitHandler) *Consumer {
	client := wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID)

	return &Consumer{
		Client:   client,
		reader:   client,
		handler:  h,
		cfg:      cfg,
		strategy: s,
	}
}

// Consume fetches messages until ctx is canceled. Every fetched message is
// committed once handled; a submission that still fails after the retry
// strategy is logged and dropped.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.cfg.Topic).
		Str("group_id", c.cfg.GroupID).
		Msg("starting consumer")

	for {
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		var msg kafka.Message
		err := retry.Do(func() error {
			var fetchErr error
			msg, fetchErr = c.reader.Fetch(ctx)
			return fetchErr
		}, c.strategy)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}

			zlog.Logger.Err(err).Msg("failed to fetch message")

			select {
			case <-ctx.Done():
			case <-time.After(fetchBackoff):
			}
			continue
		}

		c.handle(ctx, msg)

		err = retry.Do(func() error {
			return c.reader.Commit(ctx, msg)
		}, c.strategy)
		if err != nil {
			zlog.Logger.Err(err).Int64("offset", msg.Offset).Msg("failed to commit message after retries")
			continue
		}

		zlog.Logger.Info().
			Int64("offset", msg.Offset).
			Msg("submission handled")
	}
}

// handle runs the handler under the retry strategy. The group offset moves
// past msg either way, so a final failure drops the submission.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	err := retry.Do(func() error {
		return c.handler.Handle(ctx, msg)
	}, c.strategy)
	if err != nil {
		zlog.Logger.Error().Err(err).
			Int64("offset", msg.Offset).
			Str("message", string(msg.Value)).
			Msg("dropping submission after retries")
	}
}
