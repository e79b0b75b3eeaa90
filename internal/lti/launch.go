package lti

import (
	"errors"
	"net/url"
)

// ErrMissingContext means the launch carried no usable course identifier.
var ErrMissingContext = errors.New("launch missing context_id")

// LaunchParams are the claims the application consumes from a launch.
type LaunchParams struct {
	// CourseID is the platform's course identifier. Canvas sends it as
	// custom_canvas_course_id; when absent the context_id stands in.
	CourseID string

	// ContextID is the launch context identifier. Can differ from CourseID.
	ContextID string

	// ExtRoles is the raw comma-delimited role claim string.
	ExtRoles string

	// PersonID identifies the launching user (lis_person_sourcedid).
	PersonID string
}

// ParseLaunch extracts LaunchParams from a validated launch body.
func ParseLaunch(form url.Values) (LaunchParams, error) {
	p := LaunchParams{
		CourseID:  form.Get("custom_canvas_course_id"),
		ContextID: form.Get("context_id"),
		ExtRoles:  form.Get("ext_roles"),
		PersonID:  form.Get("lis_person_sourcedid"),
	}
	if p.ContextID == "" {
		return LaunchParams{}, ErrMissingContext
	}
	if p.CourseID == "" {
		p.CourseID = p.ContextID
	}
	return p, nil
}
