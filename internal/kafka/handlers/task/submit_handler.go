package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/model"
	tasksvc "github.com/aliskhannn/media-uniquer/internal/service/task"
)

// service defines the interface for accepting media by URL.
type service interface {
	Submit(ctx context.Context, rawURL string) (model.Task, error)
}

// SubmitMessage is the payload of an intake topic message.
type SubmitMessage struct {
	URL string `json:"url"`
}

// SubmitHandler handles Kafka messages that request processing of a URL.
type SubmitHandler struct {
	service service
}

// NewSubmitHandler creates a new handler with the given service.
func NewSubmitHandler(s service) *SubmitHandler {
	return &SubmitHandler{service: s}
}

// Handle submits the URL carried by msg. Malformed messages and invalid URLs
// are logged and acknowledged since a retry cannot fix them. Download and
// start failures are returned so the consumer can retry before it drops the
// message.
func (h *SubmitHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var req SubmitMessage
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		zlog.Logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("dropping malformed submission")
		return nil
	}

	if req.URL == "" {
		zlog.Logger.Warn().Int64("offset", msg.Offset).Msg("dropping submission without url")
		return nil
	}

	t, err := h.service.Submit(ctx, req.URL)
	if err != nil {
		if errors.Is(err, tasksvc.ErrInvalidURL) {
			zlog.Logger.Warn().Err(err).Str("url", req.URL).Msg("dropping submission with invalid url")
			return nil
		}

		return fmt.Errorf("submit task: %w", err)
	}

	zlog.Logger.Info().Str("task_id", t.ID).Str("url", req.URL).Msg("submission accepted from kafka")

	return nil
}
