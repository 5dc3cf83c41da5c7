package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
)

// AlertRepository implements store.AlertRepository using PostgreSQL.
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a new PostgreSQL-backed alert repository.
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Insert stores a new raw alert.
func (r *AlertRepository) Insert(ctx context.Context, alert *domain.RawAlert) error {
	query := `
		INSERT INTO raw_alerts (id, source, message, severity, labels, incident_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.pool.Exec(ctx, query,
		alert.ID,
		alert.Source,
		alert.Message,
		alert.Severity,
		alert.Labels,
		alert.IncidentID,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

// GetByID retrieves an alert by id.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.RawAlert, error) {
	query := `
		SELECT id, source, message, severity, labels, incident_id, created_at
		FROM raw_alerts
		WHERE id = $1
	`

	alert, err := scanAlert(r.db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return alert, nil
}

// AttachToIncident sets the incident id on every listed alert.
func (r *AlertRepository) AttachToIncident(ctx context.Context, alertIDs []string, incidentID string) error {
	query := `UPDATE raw_alerts SET incident_id = $1 WHERE id = ANY($2)`

	if _, err := r.db.pool.Exec(ctx, query, incidentID, alertIDs); err != nil {
		return fmt.Errorf("failed to attach alerts to incident: %w", err)
	}

	return nil
}

// CountByIncident returns the number of alerts attached to an incident.
func (r *AlertRepository) CountByIncident(ctx context.Context, incidentID string) (int, error) {
	query := `SELECT COUNT(*) FROM raw_alerts WHERE incident_id = $1`

	var count int
	if err := r.db.pool.QueryRow(ctx, query, incidentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count alerts for incident: %w", err)
	}

	return count, nil
}

// ListByIncident retrieves all alerts attached to an incident, oldest first.
func (r *AlertRepository) ListByIncident(ctx context.Context, incidentID string) ([]*domain.RawAlert, error) {
	query := `
		SELECT id, source, message, severity, labels, incident_id, created_at
		FROM raw_alerts
		WHERE incident_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts for incident: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.RawAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// scanAlert scans a single row into a RawAlert.
func scanAlert(row pgx.Row) (*domain.RawAlert, error) {
	var alert domain.RawAlert

	err := row.Scan(
		&alert.ID,
		&alert.Source,
		&alert.Message,
		&alert.Severity,
		&alert.Labels,
		&alert.IncidentID,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if alert.Labels == nil {
		alert.Labels = map[string]string{}
	}

	return &alert, nil
}
