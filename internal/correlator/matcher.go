package correlator

import (
	"context"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
	"github.com/vladvaleanu/nxforge-correlator/internal/store"
)

// IncidentMatcher decides which existing incident, if any, a group belongs
// to. It is an interface so a stricter label-aware matcher can be substituted
// without touching the merge/create logic.
type IncidentMatcher interface {
	// Match returns the incident the group should merge into, or nil, nil
	// when a new incident should be created.
	Match(ctx context.Context, group *domain.AlertGroup) (*domain.Incident, error)
}

// SourceMatcher matches a group to the most recently created open incident
// whose title contains the group's source as a substring. This is a coarse
// heuristic: it can misfire when unrelated incidents share a source name
// inside unrelated title text, and it ignores label similarity once an
// incident exists. Kept as-is for behavioral parity with the prior system.
type SourceMatcher struct {
	incidents store.IncidentRepository
}

// NewSourceMatcher creates the default title-substring matcher.
func NewSourceMatcher(incidents store.IncidentRepository) *SourceMatcher {
	return &SourceMatcher{incidents: incidents}
}

// Match implements IncidentMatcher.
func (m *SourceMatcher) Match(ctx context.Context, group *domain.AlertGroup) (*domain.Incident, error) {
	return m.incidents.FindOpenBySource(ctx, group.Source)
}
