package domain

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of an incident.
//
// Transitions: active -> investigating -> (resolved | dismissed), with
// investigating -> active allowed. Resolved and dismissed are terminal only
// insofar as no automatic process reopens them; an explicit status update
// can still move an incident back to an open state.
type Status string

const (
	StatusActive        Status = "active"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusDismissed     Status = "dismissed"
)

// IsValid returns true if the status is a known valid value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInvestigating, StatusResolved, StatusDismissed:
		return true
	default:
		return false
	}
}

// IsOpen returns true for statuses eligible for correlation matching.
func (s Status) IsOpen() bool {
	return s == StatusActive || s == StatusInvestigating
}

// IsClosed returns true for resolved or dismissed incidents.
func (s Status) IsClosed() bool {
	return s == StatusResolved || s == StatusDismissed
}

// Validation and lookup errors for incidents.
var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrInvalidStatus    = errors.New("status must be 'active', 'investigating', 'resolved', or 'dismissed'")
)

// Incident is a mutable aggregate representing one or more correlated alerts.
type Incident struct {
	// ID is the unique identifier assigned at creation.
	ID string `json:"id"`

	// Title is a derived human-readable summary, generated at creation
	// and not regenerated on subsequent merges.
	Title string `json:"title"`

	// Severity is the highest severity among all alerts ever attached.
	// It is monotonically non-decreasing over the incident's lifetime.
	Severity Severity `json:"severity"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// Impact is a derived descriptive string from shared labels, set at creation.
	Impact string `json:"impact"`

	// AlertCount is the count of attached alerts. It is recomputed from the
	// alert store on every merge rather than incremented, to avoid drift.
	AlertCount int `json:"alert_count"`

	// HasForgeAnalysis marks whether a Forge analysis has been attached.
	// Externally settable, orthogonal to correlation logic.
	HasForgeAnalysis bool `json:"has_forge_analysis"`

	// CreatedAt is when the incident was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt changes on every mutation.
	UpdatedAt time.Time `json:"updated_at"`

	// ResolvedAt is set exactly when the incident enters resolved or
	// dismissed, and cleared when it leaves those states.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// Alerts holds the attached alerts when the caller asked for them.
	// Not populated on every read path.
	Alerts []*RawAlert `json:"alerts,omitempty"`
}

// NewIncident creates an incident from an alert group. Title and impact are
// supplied by the caller since their derivation is a presentation concern.
func NewIncident(id, title, impact string, group *AlertGroup, now time.Time) *Incident {
	return &Incident{
		ID:         id,
		Title:      title,
		Severity:   group.Severity,
		Status:     StatusActive,
		Impact:     impact,
		AlertCount: len(group.Alerts),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SetStatus applies a lifecycle transition. Entering resolved or dismissed
// stamps ResolvedAt; entering any other state clears it.
func (i *Incident) SetStatus(status Status, now time.Time) {
	i.Status = status
	i.UpdatedAt = now
	if status.IsClosed() {
		resolved := now
		i.ResolvedAt = &resolved
	} else {
		i.ResolvedAt = nil
	}
}

// Escalate raises the incident severity to at least the given severity.
// Severity never downgrades on merge.
func (i *Incident) Escalate(severity Severity) {
	i.Severity = MaxSeverity(i.Severity, severity)
}
