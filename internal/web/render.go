package web

import (
	"html/template"
	"net/http"

	"github.com/coursekit/policywizard/internal/role"
	"github.com/coursekit/policywizard/internal/store"
)

// The markup here is deliberately bare: the deployed tool renders
// inside the LMS iframe and real styling ships separately.
var pages = template.Must(template.New("pages").Parse(`
{{define "retry"}}<!doctype html>
<title>Session expired</title>
<h1>Your session with the learning platform has expired.</h1>
<p>Please reload the page in your course to relaunch the tool.</p>
{{end}}

{{define "templates"}}<!doctype html>
<title>Policy templates</title>
<h1>Academic integrity policy templates</h1>
{{$admin := .IsAdmin}}
{{range .Templates}}
<section>
<h2>{{.Name}}</h2>
<pre>{{.Body}}</pre>
{{if $admin}}<a href="/templates/{{.ID}}/edit">Edit template</a>
{{else}}<a href="/policies/new?template={{.ID}}">Use this template</a>{{end}}
</section>
{{end}}
{{end}}

{{define "template_edit"}}<!doctype html>
<title>Edit template</title>
<h1>Edit "{{.Name}}"</h1>
<form method="post" action="/templates/{{.ID}}/edit">
<textarea name="body" rows="12" cols="80">{{.Body}}</textarea>
<button type="submit">Save</button>
</form>
{{end}}

{{define "compose"}}<!doctype html>
<title>Publish policy</title>
<h1>Publish a policy from "{{.Name}}"</h1>
<form method="post" action="/policies/new">
<input type="hidden" name="template_id" value="{{.ID}}">
<textarea name="body" rows="12" cols="80">{{.Body}}</textarea>
<button type="submit">Publish</button>
</form>
{{end}}

{{define "policy_instructor"}}<!doctype html>
<title>Published policy</title>
<h1>Your published academic integrity policy</h1>
<pre>{{.Body}}</pre>
<p><a href="/policy/edit">Edit policy</a></p>
<form method="post" action="/policy/restart">
<button type="submit">Retire this policy and start over</button>
</form>
{{end}}

{{define "policy_student"}}<!doctype html>
<title>Academic integrity policy</title>
<h1>Academic integrity policy for this course</h1>
<pre>{{.Body}}</pre>
{{end}}

{{define "policy_edit"}}<!doctype html>
<title>Edit policy</title>
<h1>Edit your published policy</h1>
<form method="post" action="/policy/edit">
<textarea name="body" rows="12" cols="80">{{.Body}}</textarea>
<button type="submit">Save</button>
</form>
{{end}}

{{define "server_error"}}<!doctype html>
<title>Server error</title>
<h1>Something went wrong on our side.</h1>
<p>The policy records for this course need operator attention.
Please contact {{.Contact}}.</p>
{{end}}
`))

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	pages.ExecuteTemplate(w, name, data)
}

func (s *Server) renderRetry(w http.ResponseWriter) {
	s.render(w, http.StatusOK, "retry", nil)
}

func (s *Server) renderTemplateList(w http.ResponseWriter, r role.Role, templates []store.Template) {
	s.render(w, http.StatusOK, "templates", struct {
		IsAdmin   bool
		Templates []store.Template
	}{r == role.Administrator, templates})
}

func (s *Server) renderTemplateEdit(w http.ResponseWriter, t store.Template) {
	s.render(w, http.StatusOK, "template_edit", t)
}

func (s *Server) renderCompose(w http.ResponseWriter, t store.Template) {
	s.render(w, http.StatusOK, "compose", t)
}

func (s *Server) renderPolicy(w http.ResponseWriter, r role.Role, p store.Policy) {
	if r == role.Instructor {
		s.render(w, http.StatusOK, "policy_instructor", p)
		return
	}
	s.render(w, http.StatusOK, "policy_student", p)
}

func (s *Server) renderPolicyEdit(w http.ResponseWriter, p store.Policy) {
	s.render(w, http.StatusOK, "policy_edit", p)
}

func (s *Server) renderServerError(w http.ResponseWriter) {
	s.render(w, http.StatusInternalServerError, "server_error", struct {
		Contact string
	}{s.cfg.SupportContact})
}
