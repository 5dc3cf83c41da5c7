package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/vladvaleanu/nxforge-correlator/internal/correlator"
	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
)

// IncidentHandler handles HTTP requests for incident queries and status
// updates.
type IncidentHandler struct {
	service *correlator.Service
	logger  *slog.Logger
}

// NewIncidentHandler creates a new incident handler.
func NewIncidentHandler(service *correlator.Service, logger *slog.Logger) *IncidentHandler {
	return &IncidentHandler{
		service: service,
		logger:  logger,
	}
}

// GetByID handles GET /v1/incidents/:id.
// Returns the incident with its attached alerts, or a 404 envelope.
func (h *IncidentHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")

	incident, err := h.service.GetIncident(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrIncidentNotFound) {
			return NotFound(c, "incident not found")
		}
		h.logger.Error("failed to get incident", "error", err, "incident_id", id)
		return InternalError(c, "failed to get incident")
	}

	return Success(c, incident)
}

// ListActive handles GET /v1/incidents/active.
// Open incidents ordered by severity (critical first) then recency.
// Pass include_alerts=true to embed each incident's alerts.
func (h *IncidentHandler) ListActive(c *fiber.Ctx) error {
	includeAlerts := c.QueryBool("include_alerts")

	incidents, err := h.service.GetActiveIncidents(c.Context(), includeAlerts)
	if err != nil {
		h.logger.Error("failed to list active incidents", "error", err)
		return InternalError(c, "failed to list active incidents")
	}

	return Success(c, incidents)
}

// List handles GET /v1/incidents.
// Recent incidents regardless of status; limit defaults to 50.
func (h *IncidentHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	incidents, err := h.service.GetAllIncidents(c.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list incidents", "error", err)
		return InternalError(c, "failed to list incidents")
	}

	return Success(c, incidents)
}

// statusUpdateRequest is the payload for PATCH /v1/incidents/:id/status.
type statusUpdateRequest struct {
	Status           domain.Status `json:"status"`
	HasForgeAnalysis *bool         `json:"has_forge_analysis,omitempty"`
}

// UpdateStatus handles PATCH /v1/incidents/:id/status.
func (h *IncidentHandler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var req statusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse status update body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	incident, err := h.service.UpdateStatus(c.Context(), id, req.Status, req.HasForgeAnalysis)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIncidentNotFound):
			return NotFound(c, "incident not found")
		case errors.Is(err, domain.ErrInvalidStatus):
			return ValidationError(c, err.Error())
		default:
			h.logger.Error("failed to update incident status", "error", err, "incident_id", id)
			return InternalError(c, "failed to update incident status")
		}
	}

	return Success(c, incident)
}
