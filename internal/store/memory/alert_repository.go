// Package memory provides in-memory implementations of the store interfaces,
// used for tests and for running without external dependencies.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
)

// AlertRepository is an in-memory implementation of store.AlertRepository.
// Alerts are stored by id with a secondary index by incident id.
type AlertRepository struct {
	mu sync.RWMutex

	alerts map[string]*domain.RawAlert

	// byIncident indexes alert ids by incident id.
	byIncident map[string]map[string]struct{}
}

// NewAlertRepository creates a new in-memory alert repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		alerts:     make(map[string]*domain.RawAlert),
		byIncident: make(map[string]map[string]struct{}),
	}
}

// Insert stores a new raw alert.
func (r *AlertRepository) Insert(ctx context.Context, alert *domain.RawAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts[alert.ID] = copyAlert(alert)
	return nil
}

// GetByID retrieves an alert by id.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.RawAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	return copyAlert(alert), nil
}

// AttachToIncident sets the incident id on every listed alert.
func (r *AlertRepository) AttachToIncident(ctx context.Context, alertIDs []string, incidentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attachLocked(alertIDs, incidentID)
	return nil
}

// attachLocked performs the attachment while the caller holds the lock.
// Shared with the incident repository's transactional create.
func (r *AlertRepository) attachLocked(alertIDs []string, incidentID string) {
	for _, id := range alertIDs {
		alert, ok := r.alerts[id]
		if !ok {
			continue
		}
		attached := incidentID
		alert.IncidentID = &attached
		if r.byIncident[incidentID] == nil {
			r.byIncident[incidentID] = make(map[string]struct{})
		}
		r.byIncident[incidentID][id] = struct{}{}
	}
}

// CountByIncident returns the number of alerts attached to an incident.
func (r *AlertRepository) CountByIncident(ctx context.Context, incidentID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byIncident[incidentID]), nil
}

// ListByIncident retrieves all alerts attached to an incident, oldest first.
func (r *AlertRepository) ListByIncident(ctx context.Context, incidentID string) ([]*domain.RawAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byIncident[incidentID]
	results := make([]*domain.RawAlert, 0, len(ids))
	for id := range ids {
		if alert, ok := r.alerts[id]; ok {
			results = append(results, copyAlert(alert))
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

// Clear removes all data from the repository. Useful for test cleanup.
func (r *AlertRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = make(map[string]*domain.RawAlert)
	r.byIncident = make(map[string]map[string]struct{})
}

// copyAlert returns a deep copy to prevent external modification.
func copyAlert(a *domain.RawAlert) *domain.RawAlert {
	alertCopy := *a
	alertCopy.Labels = make(map[string]string, len(a.Labels))
	for k, v := range a.Labels {
		alertCopy.Labels[k] = v
	}
	if a.IncidentID != nil {
		id := *a.IncidentID
		alertCopy.IncidentID = &id
	}
	return &alertCopy
}
