package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/coursekit/policywizard/internal/audit"
	"github.com/coursekit/policywizard/internal/guard"
	"github.com/coursekit/policywizard/internal/lti"
	"github.com/coursekit/policywizard/internal/role"
	"github.com/coursekit/policywizard/internal/session"
	"github.com/coursekit/policywizard/internal/store"
)

// NoPolicyMessage is the student-facing response for a course with no
// active policy. An empty record is information, not an error.
const NoPolicyMessage = "There is no published academic integrity policy in record for this course."

// handleLaunch is the single unauthenticated entry point. A valid
// launch establishes the session and branches by resolved role; every
// failure mode short-circuits before any session state is written.
func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.denyLaunch(w, fmt.Errorf("unparseable launch body: %w", err))
		return
	}

	err := s.validator.Validate(http.MethodPost, launchURL(r), r.PostForm, time.Now())
	if lti.IsTransientErr(err) {
		// The platform trust session timed out; a relaunch re-signs
		// with a fresh timestamp. Not a denial.
		s.renderRetry(w)
		return
	}
	if err != nil {
		s.denyLaunch(w, err)
		return
	}

	params, err := lti.ParseLaunch(r.PostForm)
	if err != nil {
		s.denyLaunch(w, err)
		return
	}

	resolved, err := role.Resolve(params.ExtRoles)
	if err != nil {
		// Deny by default; keep the raw claims in the log so an
		// operator can extend the mapping if the platform changed.
		s.denyLaunch(w, fmt.Errorf("%w: claims %q", err, params.ExtRoles))
		return
	}

	sc := session.Context{
		CourseID:  params.CourseID,
		ContextID: params.ContextID,
		Role:      resolved,
		PersonID:  params.PersonID,
	}
	sid := s.sessions.Establish(sc)
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode, // the tool lives in the LMS iframe
	})

	switch resolved {
	case role.Administrator:
		http.Redirect(w, r, "/templates", http.StatusSeeOther)
	case role.Student:
		http.Redirect(w, r, "/policy", http.StatusSeeOther)
	case role.Instructor:
		_, err := s.store.ActivePolicy(params.CourseID)
		switch {
		case err == nil:
			http.Redirect(w, r, "/policy", http.StatusSeeOther)
		case errors.Is(err, store.ErrNotFound):
			http.Redirect(w, r, "/templates", http.StatusSeeOther)
		default:
			s.fail(w, sc, err)
		}
	}
}

func (s *Server) denyLaunch(w http.ResponseWriter, err error) {
	fmt.Fprintf(os.Stderr, "launch rejected: %v\n", err)
	http.Error(w, "You are not authorized to access this resource.", http.StatusForbidden)
}

// launchURL reconstructs the URL the platform signed against. Behind a
// TLS terminator the forwarded proto wins over the direct connection.
func launchURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.Path
}

// handleTemplates lists the catalog. Administrators always see it; an
// instructor whose course already has an active policy is sent to the
// policy view instead (template selection only exists pre-publish).
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	sc, _ := guard.From(r.Context())

	if sc.Role == role.Instructor {
		_, err := s.store.ActivePolicy(sc.CourseID)
		switch {
		case err == nil:
			http.Redirect(w, r, "/policy", http.StatusSeeOther)
			return
		case errors.Is(err, store.ErrNotFound):
			// fall through to the list
		default:
			s.fail(w, sc, err)
			return
		}
	}

	templates, err := s.store.Templates()
	if err != nil {
		s.fail(w, sc, err)
		return
	}
	s.renderTemplateList(w, sc.Role, templates)
}

func (s *Server) handleTemplateEditForm(w http.ResponseWriter, r *http.Request) {
	sc, _ := guard.From(r.Context())
	t, err := s.store.TemplateByID(r.PathValue("id"))
	if err != nil {
		s.fail(w, sc, err)
		return
	}
	s.renderTemplateEdit(w, t)
}

func (s *Server) handleTemplateEdit(w http.ResponseWriter, r *http.Request) {
	sc, _ := guard.From(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	if err := s.store.UpdateTemplateBody(id, r.PostForm.Get("body")); err != nil {
		s.fail(w, sc, err)
		return
	}
	s.recordAudit(audit.Entry{
		Event:    audit.EventTemplateEdit,
		CourseID: sc.CourseID,
		Actor:    sc.PersonID,
		Role:     string(sc.Role),
		PolicyID: id,
	})
	http.Redirect(w, r, "/templates", http.StatusSeeOther)
}

// handleComposeForm shows the publish form pre-filled from a template.
func (s *Server) handleComposeForm(w http.ResponseWriter, r *http.Request) {
	sc, _ := guard.From(r.Context())

	if _, err := s.store.ActivePolicy(sc.CourseID); err == nil {
		http.Redirect(w, r, "/policy", http.StatusSeeOther)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.fail(w, sc, err)
		return
	}

	t, err := s.store.TemplateByID(r.URL.Query().Get("template"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "unknown template", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.fail(w, sc, err)
		return
	}
	s.renderCompose(w, t)
}

// handlePublish creates the active policy. A lost race (another
// request published first) routes to the winner's policy view; the
// last writer never silently overwrites.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	sc, _ := guard.From(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	t, err := s.store.TemplateByID(r.PostForm.Get("template_id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "unknown template", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.fail(w, sc, err)
		return
	}

	p, err := s.store.Publish(sc.CourseID, sc.ContextID, r.PostForm.Get("body"), t.ID, sc.PersonID)
	if errors.Is(err, store.ErrConflict) {
		http.Redirect(w, r, "/policy", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.fail(w, sc, err)
		return
	}

	s.recordAudit(audit.Entry{
		Event:    audit.EventPublish,
		CourseID: sc.CourseID,
		Actor:    sc.PersonID,
		Role:     string(sc.Role),
		PolicyID: p.ID,
		Detail:   "from template " + t.Name,
	})
	http.Redirect(w, r, "/policy", http.StatusSeeOther)
}

// handlePolicyView renders the active policy for instructors and
// students. A student with no policy on record gets the informational
// message; an instructor is routed into template selection.
func (s *Server) handlePolicyView(w http.ResponseWriter, r *http.Request) {
	sc, _ := guard.From(r.Context())

	p, err := s.store.ActivePolicy(sc.CourseID)
	if errors.Is(err, store.ErrNotFound) {
		if sc.Role == role.Student {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprint(w, NoPolicyMessage)
			return
		}
		http.Redirect(w, r, "/templates", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.fail(w, sc, err)
		return
	}
	s.renderPolicy(w, sc.Role, p)
}

func (s *Server) handlePolicyEditForm(w http.ResponseWriter, r *http.Request) {
	sc, _ := guard.From(r.Context())
	p, err := s.store.ActivePolicy(sc.CourseID)
	if errors.Is(err, store.ErrNotFound) {
		http.Redirect(w, r, "/templates", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.fail(w, sc, err)
		return
	}
	s.renderPolicyEdit(w, p)
}

func (s *Server) handlePolicyEdit(w http.ResponseWriter, r *http.Request) {
	sc, _ := guard.From(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	p, err := s.store.ActivePolicy(sc.CourseID)
	if errors.Is(err, store.ErrNotFound) {
		http.Redirect(w, r, "/templates", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.fail(w, sc, err)
		return
	}

	if err := s.store.UpdatePolicyBody(p.ID, r.PostForm.Get("body")); err != nil {
		s.fail(w, sc, err)
		return
	}
	s.recordAudit(audit.Entry{
		Event:    audit.EventPolicyEdit,
		CourseID: sc.CourseID,
		Actor:    sc.PersonID,
		Role:     string(sc.Role),
		PolicyID: p.ID,
	})
	http.Redirect(w, r, "/policy", http.StatusSeeOther)
}

// handleRestart retires the active policy and mandates a pass through
// template selection. Deactivation is idempotent, so a double submit
// lands on the template list both times.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sc, _ := guard.From(r.Context())

	p, err := s.store.ActivePolicy(sc.CourseID)
	if errors.Is(err, store.ErrNotFound) {
		http.Redirect(w, r, "/templates", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.fail(w, sc, err)
		return
	}

	if err := s.store.Deactivate(p.ID); err != nil {
		s.fail(w, sc, err)
		return
	}
	s.recordAudit(audit.Entry{
		Event:    audit.EventDeactivate,
		CourseID: sc.CourseID,
		Actor:    sc.PersonID,
		Role:     string(sc.Role),
		PolicyID: p.ID,
	})
	http.Redirect(w, r, "/templates", http.StatusSeeOther)
}

// fail maps store faults to the operator-facing server error. The
// broken invariant is audited and logged; it is never self-healed.
func (s *Server) fail(w http.ResponseWriter, sc session.Context, err error) {
	fmt.Fprintf(os.Stderr, "server error (course %s): %v\n", sc.CourseID, err)
	if errors.Is(err, store.ErrInconsistentState) {
		s.recordAudit(audit.Entry{
			Event:    audit.EventInvariantViolation,
			CourseID: sc.CourseID,
			Actor:    sc.PersonID,
			Role:     string(sc.Role),
			Detail:   err.Error(),
		})
	}
	s.renderServerError(w)
}
