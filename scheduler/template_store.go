package scheduler

import (
	"database/sql"
	"time"

	"github.com/iwtech/courier/errors"
)

// TemplateStore handles persistence of email templates.
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new template store
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// CreateTemplate persists a new template.
func (s *TemplateStore) CreateTemplate(tmpl *Template) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO email_templates (id, name, subject, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tmpl.ID, tmpl.Name, tmpl.Subject, tmpl.Body, now, now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create template")
	}
	return nil
}

// GetTemplate retrieves a template by ID.
func (s *TemplateStore) GetTemplate(id string) (*Template, error) {
	var tmpl Template
	var createdAt, updatedAt string

	err := s.db.QueryRow(`
		SELECT id, name, subject, body, created_at, updated_at
		FROM email_templates
		WHERE id = ?`, id).Scan(
		&tmpl.ID, &tmpl.Name, &tmpl.Subject, &tmpl.Body, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("template %s", id)
		}
		return nil, errors.Wrap(err, "failed to get template")
	}

	if tmpl.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse created_at for template %s", id)
	}
	if tmpl.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for template %s", id)
	}

	return &tmpl, nil
}

// ListTemplates returns all templates, newest first.
func (s *TemplateStore) ListTemplates() ([]*Template, error) {
	rows, err := s.db.Query(`
		SELECT id, name, subject, body, created_at, updated_at
		FROM email_templates
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list templates")
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		var tmpl Template
		var createdAt, updatedAt string

		if err := rows.Scan(&tmpl.ID, &tmpl.Name, &tmpl.Subject, &tmpl.Body, &createdAt, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan template")
		}
		if tmpl.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, errors.Wrapf(err, "failed to parse created_at for template %s", tmpl.ID)
		}
		if tmpl.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, errors.Wrapf(err, "failed to parse updated_at for template %s", tmpl.ID)
		}
		templates = append(templates, &tmpl)
	}

	return templates, rows.Err()
}

// DeleteTemplate removes a template. Referencing jobs get their template
// reference cleared (ON DELETE SET NULL) and subsequently fail delivery's
// missing-template precondition.
func (s *TemplateStore) DeleteTemplate(id string) error {
	result, err := s.db.Exec(`DELETE FROM email_templates WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete template")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("template %s", id)
	}
	return nil
}
