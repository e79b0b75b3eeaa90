package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// The fixed template catalog. Created once at provisioning time and
// edited only by administrators; a missing entry at runtime is a
// deployment fault, not a user error.
const (
	TemplateWrittenWork  = "Collaboration Permitted: Written Work"
	TemplateProblemSets  = "Collaboration Permitted: Problem Sets"
	TemplateNoCollab     = "Collaboration Prohibited"
	TemplateCustomPolicy = "Custom Policy"
)

// CatalogNames lists the catalog in display order.
var CatalogNames = []string{
	TemplateWrittenWork,
	TemplateProblemSets,
	TemplateNoCollab,
	TemplateCustomPolicy,
}

var defaultBodies = map[string]string{
	TemplateWrittenWork: "Students may discuss assigned written work with classmates, " +
		"but all submitted writing must be the student's own.",
	TemplateProblemSets: "Students may collaborate on problem sets, " +
		"but each student must write up and submit solutions independently.",
	TemplateNoCollab: "All work submitted in this course must be completed individually. " +
		"Collaboration of any kind is not permitted.",
	TemplateCustomPolicy: "Describe your course's academic integrity policy here.",
}

// Template is one entry of the fixed catalog.
type Template struct {
	ID   string
	Name string
	Body string
}

// SeedTemplates inserts any catalog template that does not exist yet.
// Idempotent: existing templates (including edited bodies) are untouched.
func (s *Store) SeedTemplates() error {
	for _, name := range CatalogNames {
		var exists int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM policy_templates WHERE name = ?`, name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check template %q: %w", name, err)
		}
		if exists > 0 {
			continue
		}
		now := nowStamp()
		_, err = s.db.Exec(
			`INSERT INTO policy_templates (id, name, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), name, defaultBodies[name], now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to seed template %q: %w", name, err)
		}
	}
	return nil
}

// Templates returns the catalog in display order.
func (s *Store) Templates() ([]Template, error) {
	var out []Template
	for _, name := range CatalogNames {
		t, err := s.TemplateByName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// TemplateByName fetches one catalog template. ErrNotFound here means
// the catalog was never provisioned.
func (s *Store) TemplateByName(name string) (Template, error) {
	var t Template
	err := s.db.QueryRow(
		`SELECT id, name, body FROM policy_templates WHERE name = ?`, name,
	).Scan(&t.ID, &t.Name, &t.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, fmt.Errorf("template %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Template{}, fmt.Errorf("failed to load template %q: %w", name, err)
	}
	return t, nil
}

// TemplateByID fetches one catalog template by ID.
func (s *Store) TemplateByID(id string) (Template, error) {
	var t Template
	err := s.db.QueryRow(
		`SELECT id, name, body FROM policy_templates WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Template{}, fmt.Errorf("failed to load template %s: %w", id, err)
	}
	return t, nil
}

// UpdateTemplateBody replaces a template's body. Published policies
// keep their own copied body, so edits never reach past publications.
func (s *Store) UpdateTemplateBody(id, body string) error {
	res, err := s.db.Exec(
		`UPDATE policy_templates SET body = ?, updated_at = ? WHERE id = ?`,
		body, nowStamp(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update template %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update template %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}
