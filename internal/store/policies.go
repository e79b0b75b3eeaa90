package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Policy is a published per-course policy. Rows are never deleted;
// retiring a policy flips is_active and keeps the row for audit.
type Policy struct {
	ID          string
	CourseID    string
	ContextID   string
	Body        string
	TemplateID  string
	PublishedBy string
	IsPublished bool
	IsActive    bool
}

const policyColumns = `id, course_id, context_id, body, template_id, published_by, is_published, is_active`

func scanPolicy(row interface{ Scan(...any) error }) (Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.CourseID, &p.ContextID, &p.Body,
		&p.TemplateID, &p.PublishedBy, &p.IsPublished, &p.IsActive)
	return p, err
}

// ActivePolicy returns the single active policy for a course.
// Zero rows is ErrNotFound. More than one is ErrInconsistentState:
// the invariant is broken and must be surfaced, not papered over.
func (s *Store) ActivePolicy(courseID string) (Policy, error) {
	rows, err := s.db.Query(
		`SELECT `+policyColumns+` FROM policies WHERE course_id = ? AND is_active = 1`,
		courseID,
	)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to query active policy for %s: %w", courseID, err)
	}
	defer rows.Close()

	var found []Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return Policy{}, fmt.Errorf("failed to scan policy row: %w", err)
		}
		found = append(found, p)
	}
	if err := rows.Err(); err != nil {
		return Policy{}, fmt.Errorf("failed to read policy rows: %w", err)
	}

	switch len(found) {
	case 0:
		return Policy{}, fmt.Errorf("active policy for course %s: %w", courseID, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return Policy{}, fmt.Errorf("course %s has %d active policies: %w",
			courseID, len(found), ErrInconsistentState)
	}
}

// PolicyByID fetches one policy row regardless of activity state.
func (s *Store) PolicyByID(id string) (Policy, error) {
	p, err := scanPolicy(s.db.QueryRow(
		`SELECT `+policyColumns+` FROM policies WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return Policy{}, fmt.Errorf("policy %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Policy{}, fmt.Errorf("failed to load policy %s: %w", id, err)
	}
	return p, nil
}

// Publish creates a new active policy for a course. The insert is the
// invariant check: the partial unique index rejects a second active row
// for the same course, which surfaces as ErrConflict. No prior read is
// involved, so two racing publishers cannot both succeed.
func (s *Store) Publish(courseID, contextID, body, templateID, author string) (Policy, error) {
	p := Policy{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		ContextID:   contextID,
		Body:        body,
		TemplateID:  templateID,
		PublishedBy: author,
		IsPublished: true,
		IsActive:    true,
	}
	now := nowStamp()
	_, err := s.db.Exec(
		`INSERT INTO policies (`+policyColumns+`, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, 1, ?, ?)`,
		p.ID, p.CourseID, p.ContextID, p.Body, p.TemplateID, p.PublishedBy, now, now,
	)
	if isUniqueViolation(err) {
		return Policy{}, fmt.Errorf("course %s: %w", courseID, ErrConflict)
	}
	if err != nil {
		return Policy{}, fmt.Errorf("failed to publish policy for %s: %w", courseID, err)
	}
	return p, nil
}

// Deactivate retires a policy. Idempotent: a second call on an already
// inactive policy is a no-op. Unknown IDs are ErrNotFound.
func (s *Store) Deactivate(policyID string) error {
	res, err := s.db.Exec(
		`UPDATE policies SET is_active = 0, updated_at = ? WHERE id = ?`,
		nowStamp(), policyID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate policy %s: %w", policyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to deactivate policy %s: %w", policyID, err)
	}
	if n == 0 {
		return fmt.Errorf("policy %s: %w", policyID, ErrNotFound)
	}
	return nil
}

// UpdatePolicyBody edits a policy's body in place. Activity state is
// untouched; inactive (historical) policies can be edited too.
func (s *Store) UpdatePolicyBody(policyID, body string) error {
	res, err := s.db.Exec(
		`UPDATE policies SET body = ?, updated_at = ? WHERE id = ?`,
		body, nowStamp(), policyID,
	)
	if err != nil {
		return fmt.Errorf("failed to edit policy %s: %w", policyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to edit policy %s: %w", policyID, err)
	}
	if n == 0 {
		return fmt.Errorf("policy %s: %w", policyID, ErrNotFound)
	}
	return nil
}

// PoliciesForCourse returns every policy row for a course, newest
// first, including retired ones. History is retained for audit.
func (s *Store) PoliciesForCourse(courseID string) ([]Policy, error) {
	rows, err := s.db.Query(
		`SELECT `+policyColumns+` FROM policies WHERE course_id = ? ORDER BY created_at DESC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies for %s: %w", courseID, err)
	}
	defer rows.Close()

	var out []Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
