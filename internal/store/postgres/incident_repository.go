package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
	"github.com/vladvaleanu/nxforge-correlator/internal/store"
)

const incidentColumns = `id, title, severity, status, impact, alert_count,
	has_forge_analysis, created_at, updated_at, resolved_at`

// IncidentRepository implements store.IncidentRepository using PostgreSQL.
type IncidentRepository struct {
	db *DB
}

// NewIncidentRepository creates a new PostgreSQL-backed incident repository.
func NewIncidentRepository(db *DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Insert stores a new incident.
func (r *IncidentRepository) Insert(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (
			id, title, severity, status, impact, alert_count,
			has_forge_analysis, created_at, updated_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.pool.Exec(ctx, query,
		incident.ID,
		incident.Title,
		incident.Severity,
		incident.Status,
		incident.Impact,
		incident.AlertCount,
		incident.HasForgeAnalysis,
		incident.CreatedAt,
		incident.UpdatedAt,
		incident.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}

	return nil
}

// CreateWithAlerts stores the incident and attaches the listed alerts inside
// a single transaction, so a failure leaves neither write visible.
func (r *IncidentRepository) CreateWithAlerts(ctx context.Context, incident *domain.Incident, alertIDs []string) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO incidents (
			id, title, severity, status, impact, alert_count,
			has_forge_analysis, created_at, updated_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.Exec(ctx, insertQuery,
		incident.ID,
		incident.Title,
		incident.Severity,
		incident.Status,
		incident.Impact,
		incident.AlertCount,
		incident.HasForgeAnalysis,
		incident.CreatedAt,
		incident.UpdatedAt,
		incident.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}

	attachQuery := `UPDATE raw_alerts SET incident_id = $1 WHERE id = ANY($2)`
	if _, err := tx.Exec(ctx, attachQuery, incident.ID, alertIDs); err != nil {
		return fmt.Errorf("failed to attach alerts to incident: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit incident creation: %w", err)
	}

	return nil
}

// GetByID retrieves an incident by id.
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE id = $1`, incidentColumns)

	incident, err := scanIncident(r.db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}

	return incident, nil
}

// FindOpenBySource returns the newest open incident whose title contains the
// source, or nil, nil when no such incident exists.
func (r *IncidentRepository) FindOpenBySource(ctx context.Context, source string) (*domain.Incident, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM incidents
		WHERE status IN ('active', 'investigating')
		  AND title ILIKE '%%' || $1 || '%%'
		ORDER BY created_at DESC
		LIMIT 1
	`, incidentColumns)

	incident, err := scanIncident(r.db.pool.QueryRow(ctx, query, source))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open incident by source: %w", err)
	}

	return incident, nil
}

// ListByStatus retrieves incidents in any of the given statuses, newest first.
func (r *IncidentRepository) ListByStatus(ctx context.Context, statuses []domain.Status, limit int) ([]*domain.Incident, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM incidents
		WHERE status = ANY($1)
		ORDER BY created_at DESC
	`, incidentColumns)
	args := []interface{}{values}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	return r.list(ctx, query, args...)
}

// List retrieves incidents regardless of status, newest first.
func (r *IncidentRepository) List(ctx context.Context, limit int) ([]*domain.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents ORDER BY created_at DESC`, incidentColumns)
	args := []interface{}{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	return r.list(ctx, query, args...)
}

// list runs a query returning incident rows.
func (r *IncidentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Incident, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*domain.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incidents: %w", err)
	}

	return incidents, nil
}

// UpdateSeverityAndCount applies the merge-path mutation. Status and
// resolved-at are deliberately untouched.
func (r *IncidentRepository) UpdateSeverityAndCount(ctx context.Context, id string, severity domain.Severity, count int, updatedAt time.Time) error {
	query := `
		UPDATE incidents
		SET severity = $2, alert_count = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.pool.Exec(ctx, query, id, severity, count, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update incident severity and count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrIncidentNotFound
	}

	return nil
}

// UpdateStatus applies an external status change.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id string, update store.StatusUpdate) error {
	query := `
		UPDATE incidents
		SET status = $2,
		    resolved_at = $3,
		    updated_at = $4,
		    has_forge_analysis = COALESCE($5, has_forge_analysis)
		WHERE id = $1
	`

	result, err := r.db.pool.Exec(ctx, query,
		id,
		update.Status,
		update.ResolvedAt,
		update.UpdatedAt,
		update.HasForgeAnalysis,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrIncidentNotFound
	}

	return nil
}

// scanIncident scans a single row into an Incident.
func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var incident domain.Incident

	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Severity,
		&incident.Status,
		&incident.Impact,
		&incident.AlertCount,
		&incident.HasForgeAnalysis,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	return &incident, nil
}
