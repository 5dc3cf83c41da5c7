// Package domain contains the core business entities and value objects for
// the NXForge correlator. These models represent the ubiquitous language of
// the alert-to-incident correlation domain.
package domain

import (
	"errors"
	"time"
)

// Severity represents the severity level of an alert or incident.
// Severities are totally ordered: critical > warning > info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// severityRank maps severities to their position in the total order.
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

// IsValid returns true if the severity is a known valid value.
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the ordinal position of the severity, higher is more severe.
func (s Severity) Rank() int {
	return severityRank[s]
}

// MaxSeverity returns the more severe of the two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Validation and lookup errors for alerts.
var (
	ErrAlertNotFound   = errors.New("alert not found")
	ErrEmptySource     = errors.New("source is required")
	ErrEmptyMessage    = errors.New("message is required")
	ErrInvalidSeverity = errors.New("severity must be 'critical', 'warning', or 'info'")
)

// RawAlert is an immutable fact about a detected condition.
// A RawAlert is write-once except for the single mutation that sets
// IncidentID from nil to a concrete value; once attached to an incident
// an alert is never detached or moved.
type RawAlert struct {
	// ID is the unique identifier assigned at ingestion, never reused.
	ID string `json:"id"`

	// Source identifies the emitting subsystem (e.g. "power-meter").
	Source string `json:"source"`

	// Message is a free-text description of the condition.
	Message string `json:"message"`

	// Severity is the alert severity level.
	Severity Severity `json:"severity"`

	// Labels is an unordered set of dimensions (e.g. zone, rack, device).
	Labels map[string]string `json:"labels"`

	// IncidentID is set once the alert is attached to an incident.
	// Nil until correlation; never reassigned afterward.
	IncidentID *string `json:"incident_id,omitempty"`

	// CreatedAt is the ingestion timestamp, immutable.
	CreatedAt time.Time `json:"created_at"`
}

// NewRawAlert builds an alert from ingestion input. An empty severity
// defaults to info and nil labels default to an empty map.
func NewRawAlert(id, source, message string, severity Severity, labels map[string]string, now time.Time) (*RawAlert, error) {
	if source == "" {
		return nil, ErrEmptySource
	}
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if severity == "" {
		severity = SeverityInfo
	}
	if !severity.IsValid() {
		return nil, ErrInvalidSeverity
	}
	if labels == nil {
		labels = map[string]string{}
	}
	return &RawAlert{
		ID:        id,
		Source:    source,
		Message:   message,
		Severity:  severity,
		Labels:    labels,
		CreatedAt: now,
	}, nil
}

// IsAttached returns true once the alert belongs to an incident.
func (a *RawAlert) IsAttached() bool {
	return a.IncidentID != nil
}
