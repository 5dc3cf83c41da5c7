package correlator

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/vladvaleanu/nxforge-correlator/internal/queue"
)

// Intake feeds alerts from a message queue into the correlation service,
// alongside the HTTP ingestion path. Payloads are IngestInput JSON.
type Intake struct {
	consumer queue.Consumer
	service  *Service
	logger   *slog.Logger
}

// NewIntake creates a queue-based alert intake.
func NewIntake(consumer queue.Consumer, service *Service, logger *slog.Logger) *Intake {
	return &Intake{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Run consumes alert payloads until the context is canceled. Malformed
// payloads are skipped rather than retried; ingestion failures surface to
// the consumer so the broker can redeliver.
func (i *Intake) Run(ctx context.Context) error {
	i.logger.Info("starting alert intake")
	return i.consumer.Start(ctx, i.handleMessage)
}

// handleMessage processes one queued alert payload.
func (i *Intake) handleMessage(ctx context.Context, msg *queue.Message) error {
	var in IngestInput
	if err := json.Unmarshal(msg.Value, &in); err != nil {
		i.logger.Error("failed to decode alert payload", "error", err)
		// Malformed messages are not retryable.
		return nil
	}

	if _, err := i.service.IngestAlert(ctx, in); err != nil {
		i.logger.Error("failed to ingest queued alert", "error", err, "source", in.Source)
		return err
	}

	return nil
}

// Close stops consuming.
func (i *Intake) Close() error {
	return i.consumer.Close()
}
