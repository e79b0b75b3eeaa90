// Package web is the HTTP face of policywizard: the LTI launch
// endpoint plus the session-scoped template and policy workflows.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/coursekit/policywizard/internal/audit"
	"github.com/coursekit/policywizard/internal/config"
	"github.com/coursekit/policywizard/internal/guard"
	"github.com/coursekit/policywizard/internal/lti"
	"github.com/coursekit/policywizard/internal/role"
	"github.com/coursekit/policywizard/internal/session"
	"github.com/coursekit/policywizard/internal/store"
)

// Server wires the validator, session store, policy store, and audit
// log behind the HTTP routes. It owns no workflow state of its own.
type Server struct {
	cfg       *config.Config
	cfgPath   string
	store     *store.Store
	sessions  *session.Store
	validator *lti.Validator
	auditLog  *audit.Log // nil disables auditing
	srv       *http.Server
}

// NewServer assembles a Server from loaded configuration and an open
// policy store. cfgPath is re-read on hot-reload; auditLog may be nil.
func NewServer(cfg *config.Config, cfgPath string, st *store.Store, auditLog *audit.Log) *Server {
	s := &Server{
		cfg:       cfg,
		cfgPath:   cfgPath,
		store:     st,
		sessions:  session.NewStore(cfg.SessionTTL()),
		validator: lti.NewValidator(cfg.Consumers, cfg.LaunchWindow()),
		auditLog:  auditLog,
	}
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ListenPort),
		Handler: s.Handler(),
	}
	return s
}

// Handler builds the route table. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /{$}", s.handleLaunch)

	mux.Handle("GET /templates", s.require(s.handleTemplates, role.Administrator, role.Instructor))
	mux.Handle("GET /templates/{id}/edit", s.require(s.handleTemplateEditForm, role.Administrator))
	mux.Handle("POST /templates/{id}/edit", s.require(s.handleTemplateEdit, role.Administrator))

	mux.Handle("GET /policies/new", s.require(s.handleComposeForm, role.Instructor))
	mux.Handle("POST /policies/new", s.require(s.handlePublish, role.Instructor))

	mux.Handle("GET /policy", s.require(s.handlePolicyView, role.Instructor, role.Student))
	mux.Handle("GET /policy/edit", s.require(s.handlePolicyEditForm, role.Instructor))
	mux.Handle("POST /policy/edit", s.require(s.handlePolicyEdit, role.Instructor))
	mux.Handle("POST /policy/restart", s.require(s.handleRestart, role.Instructor))

	return s.withFramePolicy(mux)
}

func (s *Server) require(h http.HandlerFunc, roles ...role.Role) http.Handler {
	return guard.Require(s.sessions, h, roles...)
}

// withFramePolicy stamps every response with the embedding policy: the
// tool only renders inside the configured platform origin's iframe.
func (s *Server) withFramePolicy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.LMSOrigin != "" {
			w.Header().Set("Content-Security-Policy",
				"frame-ancestors "+s.cfg.LMSOrigin)
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "policywizard listening on %s\n", s.srv.Addr)
	if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// ReloadConfig re-reads the config file and swaps the consumer
// registry in the running validator. Other settings need a restart.
func (s *Server) ReloadConfig() error {
	cfg, err := config.Load(s.cfgPath)
	if err != nil {
		return err
	}
	if len(cfg.Consumers) == 0 {
		return fmt.Errorf("refusing reload: no consumers in new config")
	}
	s.validator.SetConsumers(cfg.Consumers)
	return nil
}

// recordAudit appends an audit entry if auditing is enabled.
func (s *Server) recordAudit(entry audit.Entry) {
	if s.auditLog == nil {
		return
	}
	if err := s.auditLog.Record(entry); err != nil {
		fmt.Fprintf(os.Stderr, "audit write failed: %v\n", err)
	}
}
