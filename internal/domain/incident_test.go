package domain

import (
	"testing"
	"time"
)

func TestStatus_IsValid(t *testing.T) {
	for _, s := range []Status{StatusActive, StatusInvestigating, StatusResolved, StatusDismissed} {
		if !s.IsValid() {
			t.Errorf("%v should be valid", s)
		}
	}
	if Status("closed").IsValid() {
		t.Error("'closed' should not be a valid status")
	}
}

func TestStatus_OpenClosed(t *testing.T) {
	if !StatusActive.IsOpen() || !StatusInvestigating.IsOpen() {
		t.Error("active and investigating should be open")
	}
	if StatusResolved.IsOpen() || StatusDismissed.IsOpen() {
		t.Error("resolved and dismissed should not be open")
	}
	if !StatusResolved.IsClosed() || !StatusDismissed.IsClosed() {
		t.Error("resolved and dismissed should be closed")
	}
}

func TestNewIncident(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	group := &AlertGroup{
		Key:      "power-meter|zone:A",
		Source:   "power-meter",
		Severity: SeverityCritical,
		Alerts: []*RawAlert{
			{ID: "a-1"}, {ID: "a-2"}, {ID: "a-3"},
		},
	}

	incident := NewIncident("i-1", "3 Power Meter Alerts", "Affects Zone A", group, now)

	if incident.Status != StatusActive {
		t.Errorf("Status = %v, want active", incident.Status)
	}
	if incident.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want critical", incident.Severity)
	}
	if incident.AlertCount != 3 {
		t.Errorf("AlertCount = %v, want 3", incident.AlertCount)
	}
	if !incident.CreatedAt.Equal(now) || !incident.UpdatedAt.Equal(now) {
		t.Error("CreatedAt and UpdatedAt should both be the creation time")
	}
	if incident.ResolvedAt != nil {
		t.Error("ResolvedAt should be nil at creation")
	}
}

func TestIncident_SetStatus_ResolvedAtCoupling(t *testing.T) {
	incident := &Incident{Status: StatusActive}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	incident.SetStatus(StatusResolved, now)
	if incident.ResolvedAt == nil {
		t.Fatal("entering resolved should set ResolvedAt")
	}
	if !incident.ResolvedAt.Equal(now) {
		t.Errorf("ResolvedAt = %v, want %v", incident.ResolvedAt, now)
	}

	later := now.Add(time.Minute)
	incident.SetStatus(StatusActive, later)
	if incident.ResolvedAt != nil {
		t.Error("leaving resolved should clear ResolvedAt")
	}
	if !incident.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", incident.UpdatedAt, later)
	}
}

func TestIncident_SetStatus_Dismissed(t *testing.T) {
	incident := &Incident{Status: StatusInvestigating}
	now := time.Now().UTC()

	incident.SetStatus(StatusDismissed, now)
	if incident.ResolvedAt == nil {
		t.Error("entering dismissed should set ResolvedAt")
	}
}

func TestIncident_Escalate(t *testing.T) {
	incident := &Incident{Severity: SeverityCritical}

	incident.Escalate(SeverityWarning)
	if incident.Severity != SeverityCritical {
		t.Errorf("Severity = %v, severity must never downgrade", incident.Severity)
	}

	incident.Severity = SeverityInfo
	incident.Escalate(SeverityWarning)
	if incident.Severity != SeverityWarning {
		t.Errorf("Severity = %v, want warning after escalation", incident.Severity)
	}
}
