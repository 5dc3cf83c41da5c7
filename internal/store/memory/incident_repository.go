package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
	"github.com/vladvaleanu/nxforge-correlator/internal/store"
)

// IncidentRepository is an in-memory implementation of store.IncidentRepository.
type IncidentRepository struct {
	mu sync.RWMutex

	incidents map[string]*domain.Incident

	// alerts, when set, lets CreateWithAlerts attach alerts under one lock
	// so the create reads as a single logical transaction.
	alerts *AlertRepository
}

// NewIncidentRepository creates a new in-memory incident repository.
// The alert repository is used to attach alerts transactionally on create.
func NewIncidentRepository(alerts *AlertRepository) *IncidentRepository {
	return &IncidentRepository{
		incidents: make(map[string]*domain.Incident),
		alerts:    alerts,
	}
}

// Insert stores a new incident.
func (r *IncidentRepository) Insert(ctx context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.incidents[incident.ID] = copyIncident(incident)
	return nil
}

// CreateWithAlerts stores the incident and attaches the listed alerts as one
// logical transaction.
func (r *IncidentRepository) CreateWithAlerts(ctx context.Context, incident *domain.Incident, alertIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.incidents[incident.ID] = copyIncident(incident)

	r.alerts.mu.Lock()
	r.alerts.attachLocked(alertIDs, incident.ID)
	r.alerts.mu.Unlock()
	return nil
}

// GetByID retrieves an incident by id.
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	incident, ok := r.incidents[id]
	if !ok {
		return nil, domain.ErrIncidentNotFound
	}
	return copyIncident(incident), nil
}

// FindOpenBySource returns the newest open incident whose title contains the
// source, case-insensitively, or nil, nil when no such incident exists.
func (r *IncidentRepository) FindOpenBySource(ctx context.Context, source string) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(source)
	var match *domain.Incident
	for _, incident := range r.incidents {
		if !incident.Status.IsOpen() {
			continue
		}
		if !strings.Contains(strings.ToLower(incident.Title), needle) {
			continue
		}
		if match == nil || incident.CreatedAt.After(match.CreatedAt) {
			match = incident
		}
	}
	if match == nil {
		return nil, nil
	}
	return copyIncident(match), nil
}

// ListByStatus retrieves incidents in any of the given statuses, newest first.
func (r *IncidentRepository) ListByStatus(ctx context.Context, statuses []domain.Status, limit int) ([]*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[domain.Status]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}

	var results []*domain.Incident
	for _, incident := range r.incidents {
		if _, ok := wanted[incident.Status]; ok {
			results = append(results, copyIncident(incident))
		}
	}
	sortNewestFirst(results)
	return applyLimit(results, limit), nil
}

// List retrieves incidents regardless of status, newest first.
func (r *IncidentRepository) List(ctx context.Context, limit int) ([]*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*domain.Incident, 0, len(r.incidents))
	for _, incident := range r.incidents {
		results = append(results, copyIncident(incident))
	}
	sortNewestFirst(results)
	return applyLimit(results, limit), nil
}

// UpdateSeverityAndCount applies the merge-path mutation.
func (r *IncidentRepository) UpdateSeverityAndCount(ctx context.Context, id string, severity domain.Severity, count int, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident, ok := r.incidents[id]
	if !ok {
		return domain.ErrIncidentNotFound
	}
	incident.Severity = severity
	incident.AlertCount = count
	incident.UpdatedAt = updatedAt
	return nil
}

// UpdateStatus applies an external status change.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id string, update store.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident, ok := r.incidents[id]
	if !ok {
		return domain.ErrIncidentNotFound
	}
	incident.Status = update.Status
	incident.ResolvedAt = update.ResolvedAt
	incident.UpdatedAt = update.UpdatedAt
	if update.HasForgeAnalysis != nil {
		incident.HasForgeAnalysis = *update.HasForgeAnalysis
	}
	return nil
}

// Clear removes all data from the repository. Useful for test cleanup.
func (r *IncidentRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.incidents = make(map[string]*domain.Incident)
}

// sortNewestFirst orders incidents by creation time descending.
func sortNewestFirst(incidents []*domain.Incident) {
	sort.Slice(incidents, func(i, j int) bool {
		return incidents[i].CreatedAt.After(incidents[j].CreatedAt)
	})
}

// applyLimit caps the slice at limit entries when limit is positive.
func applyLimit(incidents []*domain.Incident, limit int) []*domain.Incident {
	if limit > 0 && len(incidents) > limit {
		return incidents[:limit]
	}
	return incidents
}

// copyIncident returns a copy to prevent external modification. Attached
// alerts are not part of the stored record.
func copyIncident(i *domain.Incident) *domain.Incident {
	incidentCopy := *i
	incidentCopy.Alerts = nil
	if i.ResolvedAt != nil {
		resolved := *i.ResolvedAt
		incidentCopy.ResolvedAt = &resolved
	}
	return &incidentCopy
}
