// Package correlator implements the alert-to-incident correlation engine:
// alert ingestion, time-windowed batch grouping, incident matching, creation
// and merge, severity escalation, and incident lifecycle state.
package correlator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladvaleanu/nxforge-correlator/internal/buffer"
	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
	"github.com/vladvaleanu/nxforge-correlator/internal/metrics"
	"github.com/vladvaleanu/nxforge-correlator/internal/present"
	"github.com/vladvaleanu/nxforge-correlator/internal/queue"
	"github.com/vladvaleanu/nxforge-correlator/internal/store"
)

// Config holds the tunables for the correlation service.
type Config struct {
	// BatchWindow is the interval between buffer flushes. Defaults to 30s.
	BatchWindow time.Duration

	// GroupTimeout bounds the store calls for one group during a batch.
	// A timed-out group fails alone; the batch continues. Defaults to 10s.
	GroupTimeout time.Duration

	// Clock supplies the current time. Defaults to time.Now in UTC.
	// Substitutable for deterministic tests.
	Clock func() time.Time
}

// applyDefaults fills zero-valued config fields.
func (c *Config) applyDefaults() {
	if c.BatchWindow == 0 {
		c.BatchWindow = 30 * time.Second
	}
	if c.GroupTimeout == 0 {
		c.GroupTimeout = 10 * time.Second
	}
	if c.Clock == nil {
		c.Clock = func() time.Time { return time.Now().UTC() }
	}
}

// Service owns the ingestion buffer, the periodic flush timer, and the
// correlation logic. It is the sole mutation point for incidents apart from
// the external status update it also hosts.
type Service struct {
	cfg       Config
	buf       buffer.Buffer
	alerts    store.AlertRepository
	incidents store.IncidentRepository
	matcher   IncidentMatcher
	publisher queue.Publisher
	logger    *slog.Logger

	// mu guards the timer lifecycle below.
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewService creates a new correlation service. The publisher may be nil,
// in which case lifecycle events are not emitted.
func NewService(
	cfg Config,
	buf buffer.Buffer,
	alerts store.AlertRepository,
	incidents store.IncidentRepository,
	matcher IncidentMatcher,
	publisher queue.Publisher,
	logger *slog.Logger,
) *Service {
	cfg.applyDefaults()
	return &Service{
		cfg:       cfg,
		buf:       buf,
		alerts:    alerts,
		incidents: incidents,
		matcher:   matcher,
		publisher: publisher,
		logger:    logger,
	}
}

// IngestInput is the caller-supplied payload for alert ingestion.
type IngestInput struct {
	Source   string            `json:"source"`
	Message  string            `json:"message"`
	Severity domain.Severity   `json:"severity,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// IngestAlert accepts a new alert: it is durably persisted before being
// admitted to the buffer, so a crash between the two steps only delays
// correlation and never loses data. A persistence failure aborts ingestion
// entirely; the alert is not buffered and the error propagates.
func (s *Service) IngestAlert(ctx context.Context, in IngestInput) (*domain.RawAlert, error) {
	alert, err := domain.NewRawAlert(uuid.New().String(), in.Source, in.Message, in.Severity, in.Labels, s.cfg.Clock())
	if err != nil {
		metrics.AlertsRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	if err := s.alerts.Insert(ctx, alert); err != nil {
		metrics.AlertsRejectedTotal.WithLabelValues("store").Inc()
		s.logger.Error("failed to persist alert", "error", err, "source", alert.Source)
		return nil, fmt.Errorf("failed to persist alert: %w", err)
	}

	if err := s.buf.Append(ctx, alert); err != nil {
		// The alert is already durable; it will be picked up by a future
		// sweep rather than silently dropped.
		s.logger.Error("failed to buffer alert", "error", err, "alert_id", alert.ID)
		return nil, fmt.Errorf("failed to buffer alert: %w", err)
	}

	metrics.AlertsIngestedTotal.WithLabelValues(alert.Source, string(alert.Severity)).Inc()
	if depth, err := s.buf.Len(ctx); err == nil {
		metrics.BufferDepth.Set(float64(depth))
	}

	s.logger.Debug("alert ingested",
		"alert_id", alert.ID,
		"source", alert.Source,
		"severity", alert.Severity,
	)

	return alert, nil
}

// Start launches the periodic flush timer. Calling Start while already
// running is a no-op, logged as a warning.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("correlator already started")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(ctx)

	s.logger.Info("correlator started", "batch_window", s.cfg.BatchWindow)
}

// run drives the flush loop until the context is canceled.
func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.BatchWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ProcessBatch(ctx); err != nil {
				s.logger.Error("batch processing failed", "error", err)
			}
		}
	}
}

// Stop cancels the flush timer and waits for an in-flight batch to finish.
// Safe to call when already stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	<-s.done
	s.running = false

	s.logger.Info("correlator stopped")
}

// ProcessBatch atomically drains the buffer and correlates the snapshot.
// An empty snapshot returns immediately without store calls. Each group is
// processed under its own timeout; a failing group is logged, its alerts are
// re-buffered for the next batch, and the remaining groups still run.
func (s *Service) ProcessBatch(ctx context.Context) error {
	batch, err := s.buf.Drain(ctx)
	if err != nil {
		return fmt.Errorf("failed to drain buffer: %w", err)
	}

	if len(batch) == 0 {
		metrics.BatchesProcessedTotal.WithLabelValues("empty").Inc()
		return nil
	}

	start := time.Now()
	metrics.BatchesProcessedTotal.WithLabelValues("processed").Inc()
	metrics.BatchSize.Observe(float64(len(batch)))
	metrics.BufferDepth.Set(0)

	groups := domain.GroupAlerts(batch)
	s.logger.Info("processing batch", "alerts", len(batch), "groups", len(groups))

	for _, group := range groups {
		groupCtx, cancel := context.WithTimeout(ctx, s.cfg.GroupTimeout)
		incident, err := s.correlateGroup(groupCtx, group)
		cancel()

		if err != nil {
			metrics.GroupsProcessedTotal.WithLabelValues("failed").Inc()
			s.logger.Error("failed to correlate group",
				"error", err,
				"group_key", group.Key,
				"alerts", len(group.Alerts),
			)
			s.rebuffer(ctx, group)
			continue
		}

		s.logger.Info("group correlated",
			"group_key", group.Key,
			"incident_id", incident.ID,
			"severity", incident.Severity,
			"alert_count", incident.AlertCount,
		)
	}

	metrics.BatchProcessingLatency.Observe(time.Since(start).Seconds())
	return nil
}

// correlateGroup finds or creates the matching incident for a group.
// Merge and create are the only two mutation paths.
func (s *Service) correlateGroup(ctx context.Context, group *domain.AlertGroup) (*domain.Incident, error) {
	match, err := s.matcher.Match(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("failed to match group: %w", err)
	}

	if match != nil {
		return s.mergeGroup(ctx, group, match)
	}
	return s.createIncident(ctx, group)
}

// mergeGroup adds a group's alerts to an existing incident: attach the
// alerts, recompute the count from the store rather than incrementing,
// raise severity to the ceiling, and touch updated-at. Status and
// resolved-at are untouched; a merge never reopens a resolved incident.
func (s *Service) mergeGroup(ctx context.Context, group *domain.AlertGroup, incident *domain.Incident) (*domain.Incident, error) {
	if err := s.alerts.AttachToIncident(ctx, group.AlertIDs(), incident.ID); err != nil {
		return nil, fmt.Errorf("failed to attach alerts: %w", err)
	}

	count, err := s.alerts.CountByIncident(ctx, incident.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	severity := domain.MaxSeverity(incident.Severity, group.Severity)
	if err := s.incidents.UpdateSeverityAndCount(ctx, incident.ID, severity, count, s.cfg.Clock()); err != nil {
		return nil, fmt.Errorf("failed to update incident: %w", err)
	}

	refreshed, err := s.incidents.GetByID(ctx, incident.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload incident: %w", err)
	}

	metrics.GroupsProcessedTotal.WithLabelValues("merged").Inc()
	metrics.IncidentsMergedTotal.Inc()
	s.publishEvent(ctx, eventIncidentUpdated, refreshed)

	return refreshed, nil
}

// createIncident creates a new incident for a group and attaches its alerts
// as one logical transaction.
func (s *Service) createIncident(ctx context.Context, group *domain.AlertGroup) (*domain.Incident, error) {
	incident := domain.NewIncident(
		uuid.New().String(),
		present.Title(group),
		present.Impact(group),
		group,
		s.cfg.Clock(),
	)

	if err := s.incidents.CreateWithAlerts(ctx, incident, group.AlertIDs()); err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}

	metrics.GroupsProcessedTotal.WithLabelValues("created").Inc()
	metrics.IncidentsCreatedTotal.WithLabelValues(string(incident.Severity)).Inc()
	s.publishEvent(ctx, eventIncidentCreated, incident)

	return incident, nil
}

// rebuffer returns a failed group's alerts to the buffer so the next batch
// retries them instead of dropping persisted-but-uncorrelated alerts.
func (s *Service) rebuffer(ctx context.Context, group *domain.AlertGroup) {
	for _, alert := range group.Alerts {
		if err := s.buf.Append(ctx, alert); err != nil {
			s.logger.Warn("failed to re-buffer alert", "error", err, "alert_id", alert.ID)
		}
	}
}

// GetIncident retrieves an incident with its attached alerts.
// Returns domain.ErrIncidentNotFound when no such incident exists.
func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	alerts, err := s.alerts.ListByIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load incident alerts: %w", err)
	}
	incident.Alerts = alerts

	return incident, nil
}

// GetActiveIncidents lists open incidents (active and investigating),
// ordered by severity (critical first) then by recency.
func (s *Service) GetActiveIncidents(ctx context.Context, includeAlerts bool) ([]*domain.Incident, error) {
	incidents, err := s.incidents.ListByStatus(ctx, []domain.Status{domain.StatusActive, domain.StatusInvestigating}, 0)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		if incidents[i].Severity.Rank() != incidents[j].Severity.Rank() {
			return incidents[i].Severity.Rank() > incidents[j].Severity.Rank()
		}
		return incidents[i].CreatedAt.After(incidents[j].CreatedAt)
	})

	if includeAlerts {
		for _, incident := range incidents {
			alerts, err := s.alerts.ListByIncident(ctx, incident.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load incident alerts: %w", err)
			}
			incident.Alerts = alerts
		}
	}

	return incidents, nil
}

// GetAllIncidents lists recent incidents regardless of status, newest first.
func (s *Service) GetAllIncidents(ctx context.Context, limit int) ([]*domain.Incident, error) {
	return s.incidents.List(ctx, limit)
}

// UpdateStatus applies an external lifecycle transition. Entering resolved
// or dismissed stamps resolved-at; entering an open state clears it. The
// forge-analysis flag is applied only when supplied.
// Returns domain.ErrIncidentNotFound when no such incident exists.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status, hasForgeAnalysis *bool) (*domain.Incident, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}

	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	incident.SetStatus(status, s.cfg.Clock())
	if hasForgeAnalysis != nil {
		incident.HasForgeAnalysis = *hasForgeAnalysis
	}

	update := store.StatusUpdate{
		Status:           incident.Status,
		ResolvedAt:       incident.ResolvedAt,
		UpdatedAt:        incident.UpdatedAt,
		HasForgeAnalysis: hasForgeAnalysis,
	}
	if err := s.incidents.UpdateStatus(ctx, id, update); err != nil {
		return nil, err
	}

	metrics.IncidentStatusChangesTotal.WithLabelValues(string(status)).Inc()
	s.publishEvent(ctx, eventIncidentStatusChanged, incident)

	s.logger.Info("incident status updated", "incident_id", id, "status", status)

	return incident, nil
}
