package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSeverityOrdering(t *testing.T) {
	if SeverityCritical.Rank() <= SeverityWarning.Rank() {
		t.Error("critical should rank above warning")
	}
	if SeverityWarning.Rank() <= SeverityInfo.Rank() {
		t.Error("warning should rank above info")
	}
}

func TestMaxSeverity(t *testing.T) {
	tests := []struct {
		a, b, want Severity
	}{
		{SeverityInfo, SeverityInfo, SeverityInfo},
		{SeverityInfo, SeverityWarning, SeverityWarning},
		{SeverityWarning, SeverityCritical, SeverityCritical},
		{SeverityCritical, SeverityWarning, SeverityCritical},
		{SeverityCritical, SeverityInfo, SeverityCritical},
	}

	for _, tt := range tests {
		if got := MaxSeverity(tt.a, tt.b); got != tt.want {
			t.Errorf("MaxSeverity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSeverity_IsValid(t *testing.T) {
	for _, s := range []Severity{SeverityCritical, SeverityWarning, SeverityInfo} {
		if !s.IsValid() {
			t.Errorf("%v should be valid", s)
		}
	}
	if Severity("high").IsValid() {
		t.Error("'high' should not be a valid severity")
	}
}

func TestNewRawAlert(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	alert, err := NewRawAlert("a-1", "power-meter", "voltage spike", SeverityWarning, map[string]string{"zone": "A"}, now)
	if err != nil {
		t.Fatalf("NewRawAlert error: %v", err)
	}

	if alert.ID != "a-1" {
		t.Errorf("ID = %v, want a-1", alert.ID)
	}
	if alert.Source != "power-meter" {
		t.Errorf("Source = %v, want power-meter", alert.Source)
	}
	if alert.Severity != SeverityWarning {
		t.Errorf("Severity = %v, want warning", alert.Severity)
	}
	if !alert.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", alert.CreatedAt, now)
	}
	if alert.IncidentID != nil {
		t.Error("IncidentID should be nil at ingestion")
	}
	if alert.IsAttached() {
		t.Error("IsAttached() should be false before correlation")
	}
}

func TestNewRawAlert_Defaults(t *testing.T) {
	alert, err := NewRawAlert("a-1", "power-meter", "voltage spike", "", nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewRawAlert error: %v", err)
	}

	if alert.Severity != SeverityInfo {
		t.Errorf("Severity = %v, want default info", alert.Severity)
	}
	if alert.Labels == nil {
		t.Error("Labels should default to an empty map")
	}
}

func TestNewRawAlert_Validation(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name     string
		source   string
		message  string
		severity Severity
		wantErr  error
	}{
		{"empty source", "", "msg", SeverityInfo, ErrEmptySource},
		{"empty message", "power-meter", "", SeverityInfo, ErrEmptyMessage},
		{"invalid severity", "power-meter", "msg", "fatal", ErrInvalidSeverity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRawAlert("a-1", tt.source, tt.message, tt.severity, nil, now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewRawAlert error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
