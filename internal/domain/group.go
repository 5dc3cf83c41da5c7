package domain

import (
	"sort"
	"strings"
)

// AlertGroup is the transient unit produced by batch grouping: alerts that
// share an identical source and label set. It exists only for the duration
// of one batch-processing pass and is never persisted.
type AlertGroup struct {
	// Key is the grouping key: source + "|" + sorted label pairs.
	Key string

	// Source is the emitting subsystem shared by all members.
	Source string

	// Severity is the maximum severity across all members.
	Severity Severity

	// SharedLabels is the label set common to all members. By construction
	// every member of a group carries an identical label map, so this is a
	// copy of the first member's labels.
	SharedLabels map[string]string

	// Alerts are the member alerts in insertion order.
	Alerts []*RawAlert
}

// GroupingKey builds the exact-match grouping key for an alert:
// source + "|" + label pairs sorted lexicographically by key, each rendered
// as "key:value" and joined with "|". Two alerts land in the same group only
// when source and the full label set are identical.
func GroupingKey(a *RawAlert) string {
	keys := make([]string, 0, len(a.Labels))
	for k := range a.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(a.Source)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(a.Labels[k])
	}
	return b.String()
}

// GroupAlerts partitions a batch of alerts into coherent groups using
// source + label equality. Within a group, member order follows insertion
// order and severity is the ceiling across members. Output order is
// unspecified; callers must not depend on it.
func GroupAlerts(alerts []*RawAlert) []*AlertGroup {
	groups := make(map[string]*AlertGroup)
	for _, alert := range alerts {
		key := GroupingKey(alert)
		g, ok := groups[key]
		if !ok {
			labels := make(map[string]string, len(alert.Labels))
			for k, v := range alert.Labels {
				labels[k] = v
			}
			g = &AlertGroup{
				Key:          key,
				Source:       alert.Source,
				Severity:     alert.Severity,
				SharedLabels: labels,
			}
			groups[key] = g
		}
		g.Severity = MaxSeverity(g.Severity, alert.Severity)
		g.Alerts = append(g.Alerts, alert)
	}

	result := make([]*AlertGroup, 0, len(groups))
	for _, g := range groups {
		result = append(result, g)
	}
	return result
}

// AlertIDs returns the ids of the member alerts in insertion order.
func (g *AlertGroup) AlertIDs() []string {
	ids := make([]string, len(g.Alerts))
	for i, a := range g.Alerts {
		ids[i] = a.ID
	}
	return ids
}
