package domain

import (
	"testing"
	"time"
)

func mkAlert(t *testing.T, id, source string, severity Severity, labels map[string]string) *RawAlert {
	t.Helper()
	alert, err := NewRawAlert(id, source, "test alert "+id, severity, labels, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewRawAlert error: %v", err)
	}
	return alert
}

func TestGroupingKey_LabelOrderIndependent(t *testing.T) {
	a := mkAlert(t, "a-1", "power-meter", SeverityInfo, map[string]string{"zone": "A", "rack": "R7"})
	b := mkAlert(t, "a-2", "power-meter", SeverityInfo, map[string]string{"rack": "R7", "zone": "A"})

	if GroupingKey(a) != GroupingKey(b) {
		t.Errorf("keys differ for identical label sets: %q vs %q", GroupingKey(a), GroupingKey(b))
	}
}

func TestGroupingKey_Format(t *testing.T) {
	a := mkAlert(t, "a-1", "power-meter", SeverityInfo, map[string]string{"zone": "A", "device": "pdu-3"})

	want := "power-meter|device:pdu-3|zone:A"
	if got := GroupingKey(a); got != want {
		t.Errorf("GroupingKey = %q, want %q", got, want)
	}
}

func TestGroupAlerts_SameKeySameGroup(t *testing.T) {
	alerts := []*RawAlert{
		mkAlert(t, "a-1", "power-meter", SeverityWarning, map[string]string{"zone": "A"}),
		mkAlert(t, "a-2", "power-meter", SeverityWarning, map[string]string{"zone": "A"}),
		mkAlert(t, "a-3", "power-meter", SeverityCritical, map[string]string{"zone": "A"}),
	}

	groups := GroupAlerts(alerts)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}

	g := groups[0]
	if len(g.Alerts) != 3 {
		t.Errorf("group has %d alerts, want 3", len(g.Alerts))
	}
	if g.Severity != SeverityCritical {
		t.Errorf("group severity = %v, want critical", g.Severity)
	}
	if g.Source != "power-meter" {
		t.Errorf("group source = %v, want power-meter", g.Source)
	}
	if g.SharedLabels["zone"] != "A" {
		t.Errorf("shared labels = %v, want zone A", g.SharedLabels)
	}
}

func TestGroupAlerts_DifferingLabelsSplit(t *testing.T) {
	alerts := []*RawAlert{
		mkAlert(t, "a-1", "power-meter", SeverityInfo, map[string]string{"zone": "A"}),
		mkAlert(t, "a-2", "power-meter", SeverityInfo, map[string]string{"zone": "B"}),
		mkAlert(t, "a-3", "power-meter", SeverityInfo, map[string]string{"zone": "A", "rack": "R1"}),
		mkAlert(t, "a-4", "cooling", SeverityInfo, map[string]string{"zone": "A"}),
	}

	groups := GroupAlerts(alerts)
	if len(groups) != 4 {
		t.Fatalf("got %d groups, want 4", len(groups))
	}
}

func TestGroupAlerts_SeverityCeiling(t *testing.T) {
	alerts := []*RawAlert{
		mkAlert(t, "a-1", "power-meter", SeverityCritical, map[string]string{"zone": "A"}),
		mkAlert(t, "a-2", "power-meter", SeverityInfo, map[string]string{"zone": "A"}),
	}

	groups := GroupAlerts(alerts)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	// Ceiling must hold regardless of which member arrives first.
	if groups[0].Severity != SeverityCritical {
		t.Errorf("group severity = %v, want critical", groups[0].Severity)
	}
}

func TestGroupAlerts_InsertionOrderPreserved(t *testing.T) {
	alerts := []*RawAlert{
		mkAlert(t, "a-1", "power-meter", SeverityInfo, nil),
		mkAlert(t, "a-2", "power-meter", SeverityInfo, nil),
		mkAlert(t, "a-3", "power-meter", SeverityInfo, nil),
	}

	groups := GroupAlerts(alerts)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}

	ids := groups[0].AlertIDs()
	want := []string{"a-1", "a-2", "a-3"}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("AlertIDs()[%d] = %v, want %v", i, ids[i], id)
		}
	}
}

func TestGroupAlerts_Empty(t *testing.T) {
	if groups := GroupAlerts(nil); len(groups) != 0 {
		t.Errorf("got %d groups for empty batch, want 0", len(groups))
	}
}

func TestGroup_SharedLabelsCopied(t *testing.T) {
	alert := mkAlert(t, "a-1", "power-meter", SeverityInfo, map[string]string{"zone": "A"})

	groups := GroupAlerts([]*RawAlert{alert})
	groups[0].SharedLabels["zone"] = "Z"

	if alert.Labels["zone"] != "A" {
		t.Error("mutating SharedLabels must not touch the member alert's labels")
	}
}
