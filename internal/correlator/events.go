package correlator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
	"github.com/vladvaleanu/nxforge-correlator/internal/queue"
)

// Incident lifecycle event types published to the events topic.
const (
	eventIncidentCreated       = "incident.created"
	eventIncidentUpdated       = "incident.updated"
	eventIncidentStatusChanged = "incident.status_changed"
)

// incidentEvent is the payload published for downstream consumers.
type incidentEvent struct {
	Type       string           `json:"type"`
	Incident   *domain.Incident `json:"incident"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// publishEvent emits an incident lifecycle event keyed by incident id, so
// each incident's history is delivered in order. Publish failures are logged
// and never fail the correlation path.
func (s *Service) publishEvent(ctx context.Context, eventType string, incident *domain.Incident) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(incidentEvent{
		Type:       eventType,
		Incident:   incident,
		OccurredAt: s.cfg.Clock(),
	})
	if err != nil {
		s.logger.Warn("failed to serialize incident event", "error", err, "incident_id", incident.ID)
		return
	}

	msg := &queue.Message{
		Key:   []byte(incident.ID),
		Value: payload,
		Headers: map[string]string{
			"type": eventType,
		},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn("failed to publish incident event",
			"error", err,
			"type", eventType,
			"incident_id", incident.ID,
		)
	}
}
