package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coursekit/policywizard/internal/config"
	"github.com/coursekit/policywizard/internal/lti"
	"github.com/coursekit/policywizard/internal/store"
)

func newReloadFixture(t *testing.T, initialSecret string) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConsumers(t, cfgPath, initialSecret)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	st, err := store.Open(filepath.Join(dir, "policies.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return NewServer(cfg, cfgPath, st, nil), cfgPath
}

func writeConsumers(t *testing.T, path, secret string) {
	t.Helper()
	content := "consumers:\n  canvas-prod: " + secret + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

// launchWith signs a minimal student launch with the given secret and
// returns the response status.
func launchWith(t *testing.T, srv *Server, secret string) int {
	t.Helper()
	form := url.Values{}
	form.Set("lti_message_type", lti.LaunchMessageType)
	form.Set("context_id", "ctx1")
	form.Set("ext_roles", "urn:lti:role:ims/lis/Learner")
	form.Set("oauth_consumer_key", "canvas-prod")
	form.Set("oauth_signature_method", "HMAC-SHA1")
	form.Set("oauth_timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	form.Set("oauth_nonce", fmt.Sprintf("n-%d", time.Now().UnixNano()))
	form.Set("oauth_signature", lti.Sign("POST", "http://tool.example.edu/", form, secret))

	r := httptest.NewRequest(http.MethodPost, "http://tool.example.edu/",
		strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	return w.Code
}

func TestReloadConfigRotatesConsumerSecrets(t *testing.T) {
	srv, cfgPath := newReloadFixture(t, "old-secret")

	if code := launchWith(t, srv, "old-secret"); code != http.StatusSeeOther {
		t.Fatalf("launch with current secret: got %d", code)
	}

	writeConsumers(t, cfgPath, "new-secret")
	if err := srv.ReloadConfig(); err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}

	if code := launchWith(t, srv, "old-secret"); code != http.StatusForbidden {
		t.Errorf("old secret still accepted after reload: %d", code)
	}
	if code := launchWith(t, srv, "new-secret"); code != http.StatusSeeOther {
		t.Errorf("new secret rejected after reload: %d", code)
	}
}

func TestReloadConfigRefusesEmptyRegistry(t *testing.T) {
	srv, cfgPath := newReloadFixture(t, "secret")

	// A truncated config must not wipe the live registry.
	if err := os.WriteFile(cfgPath, []byte(""), 0600); err != nil {
		t.Fatalf("failed to truncate config: %v", err)
	}
	if err := srv.ReloadConfig(); err == nil {
		t.Error("expected reload of empty registry to be refused")
	}
	if code := launchWith(t, srv, "secret"); code != http.StatusSeeOther {
		t.Errorf("registry should survive a refused reload: %d", code)
	}
}
