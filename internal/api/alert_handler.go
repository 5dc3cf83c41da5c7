package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/vladvaleanu/nxforge-correlator/internal/correlator"
	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
)

// AlertHandler handles HTTP requests for alert ingestion and manual flushes.
type AlertHandler struct {
	service *correlator.Service
	logger  *slog.Logger
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(service *correlator.Service, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		service: service,
		logger:  logger,
	}
}

// Ingest handles POST /v1/alerts.
// Persists the alert and admits it to the buffer; returns the fully
// populated alert so the caller can confirm receipt.
func (h *AlertHandler) Ingest(c *fiber.Ctx) error {
	var in correlator.IngestInput
	if err := c.BodyParser(&in); err != nil {
		h.logger.Debug("failed to parse alert body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	alert, err := h.service.IngestAlert(c.Context(), in)
	if err != nil {
		if isValidationError(err) {
			return ValidationError(c, err.Error())
		}
		h.logger.Error("failed to ingest alert", "error", err, "source", in.Source)
		return InternalError(c, "failed to ingest alert")
	}

	return Created(c, alert)
}

// ProcessBatch handles POST /v1/batches.
// Forces a flush of the ingestion buffer independent of the timer.
func (h *AlertHandler) ProcessBatch(c *fiber.Ctx) error {
	if err := h.service.ProcessBatch(c.Context()); err != nil {
		h.logger.Error("manual batch processing failed", "error", err)
		return InternalError(c, "failed to process batch")
	}

	return Accepted(c, map[string]string{
		"status": "processed",
	})
}

// isValidationError reports whether the error is a malformed-input error
// rather than a store failure.
func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrEmptySource) ||
		errors.Is(err, domain.ErrEmptyMessage) ||
		errors.Is(err, domain.ErrInvalidSeverity)
}
