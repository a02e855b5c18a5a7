package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// SessionTemplateRepository stores the busy matrix of each session.
type SessionTemplateRepository struct {
	db *sqlx.DB
}

// NewSessionTemplateRepository constructs a SessionTemplateRepository.
func NewSessionTemplateRepository(db *sqlx.DB) *SessionTemplateRepository {
	return &SessionTemplateRepository{db: db}
}

// List returns the stored templates.
func (r *SessionTemplateRepository) List(ctx context.Context) ([]models.SessionTemplate, error) {
	const query = `SELECT session, availability, updated_at FROM session_templates ORDER BY session ASC`
	var templates []models.SessionTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list session templates: %w", err)
	}
	return templates, nil
}

// Upsert stores the template for its session.
func (r *SessionTemplateRepository) Upsert(ctx context.Context, tmpl *models.SessionTemplate) error {
	tmpl.UpdatedAt = time.Now().UTC()
	const query = `
INSERT INTO session_templates (session, availability, updated_at)
VALUES (:session, :availability, :updated_at)
ON CONFLICT (session) DO UPDATE
SET availability = EXCLUDED.availability,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, tmpl); err != nil {
		return fmt.Errorf("upsert session template: %w", err)
	}
	return nil
}
