// Package store defines interfaces for durable alert and incident
// persistence. These abstractions allow swapping implementations
// (PostgreSQL, in-memory) without changing correlation logic.
package store

import (
	"context"
	"time"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
)

// AlertRepository defines the interface for the durable append-only alert log.
type AlertRepository interface {
	// Insert stores a new raw alert.
	Insert(ctx context.Context, alert *domain.RawAlert) error

	// GetByID retrieves an alert by id.
	GetByID(ctx context.Context, id string) (*domain.RawAlert, error)

	// AttachToIncident sets the incident id on every listed alert.
	AttachToIncident(ctx context.Context, alertIDs []string, incidentID string) error

	// CountByIncident returns the number of alerts attached to an incident.
	CountByIncident(ctx context.Context, incidentID string) (int, error)

	// ListByIncident retrieves all alerts attached to an incident,
	// oldest first.
	ListByIncident(ctx context.Context, incidentID string) ([]*domain.RawAlert, error)
}

// StatusUpdate carries the fields touched by an external status change.
type StatusUpdate struct {
	Status     domain.Status
	ResolvedAt *time.Time
	UpdatedAt  time.Time

	// HasForgeAnalysis is applied only when non-nil.
	HasForgeAnalysis *bool
}

// IncidentRepository defines the interface for durable incident records.
type IncidentRepository interface {
	// Insert stores a new incident.
	Insert(ctx context.Context, incident *domain.Incident) error

	// CreateWithAlerts stores a new incident and attaches the listed alerts
	// as one logical transaction: on failure neither the incident nor the
	// alert attachments are visible.
	CreateWithAlerts(ctx context.Context, incident *domain.Incident, alertIDs []string) error

	// GetByID retrieves an incident by id.
	// Returns domain.ErrIncidentNotFound when no such incident exists.
	GetByID(ctx context.Context, id string) (*domain.Incident, error)

	// FindOpenBySource returns the most recently created incident whose
	// status is open and whose title contains the source, or nil, nil when
	// no such incident exists.
	FindOpenBySource(ctx context.Context, source string) (*domain.Incident, error)

	// ListByStatus retrieves incidents in any of the given statuses,
	// newest first.
	ListByStatus(ctx context.Context, statuses []domain.Status, limit int) ([]*domain.Incident, error)

	// List retrieves incidents regardless of status, newest first.
	List(ctx context.Context, limit int) ([]*domain.Incident, error)

	// UpdateSeverityAndCount applies the merge-path mutation: severity,
	// alert count, and updated-at. Status and resolved-at are untouched.
	UpdateSeverityAndCount(ctx context.Context, id string, severity domain.Severity, count int, updatedAt time.Time) error

	// UpdateStatus applies an external status change.
	// Returns domain.ErrIncidentNotFound when no such incident exists.
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) error
}
