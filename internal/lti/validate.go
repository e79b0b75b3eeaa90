// Package lti validates LTI 1.1 basic launch requests and extracts
// their claims. Verification is stateless apart from the nonce cache.
package lti

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// LaunchMessageType is the only message type accepted at the launch endpoint.
const LaunchMessageType = "basic-lti-launch-request"

// Terminal authentication failures: reject the launch.
var (
	ErrNotLaunch       = errors.New("not a basic lti launch request")
	ErrUnknownConsumer = errors.New("unknown consumer key")
	ErrBadSignature    = errors.New("oauth signature mismatch")
	ErrNonceReplay     = errors.New("oauth nonce already used")
)

// ErrStaleTimestamp is transient: the signature verified but the launch
// timestamp aged past the freshness window, which is what an expired
// platform trust session looks like. The user should relaunch, which
// re-signs with a fresh timestamp; this is not a denial.
var ErrStaleTimestamp = errors.New("launch timestamp outside freshness window")

// IsAuthenticationErr reports whether err is a terminal launch rejection.
func IsAuthenticationErr(err error) bool {
	return errors.Is(err, ErrNotLaunch) ||
		errors.Is(err, ErrUnknownConsumer) ||
		errors.Is(err, ErrBadSignature) ||
		errors.Is(err, ErrNonceReplay)
}

// IsTransientErr reports whether err should prompt a relaunch rather
// than a denial.
func IsTransientErr(err error) bool {
	return errors.Is(err, ErrStaleTimestamp)
}

// Validator verifies launch signatures against a consumer registry and
// tracks nonces within the freshness window to resist replay.
type Validator struct {
	window time.Duration

	mu        sync.Mutex
	consumers map[string]string
	seen      map[string]time.Time // consumerKey:nonce -> expiry
}

// NewValidator creates a Validator over the given consumer key/secret
// registry. window bounds both timestamp freshness and nonce retention.
func NewValidator(consumers map[string]string, window time.Duration) *Validator {
	cp := make(map[string]string, len(consumers))
	for k, v := range consumers {
		cp[k] = v
	}
	return &Validator{
		window:    window,
		consumers: cp,
		seen:      make(map[string]time.Time),
	}
}

// SetConsumers swaps the consumer registry. Used for config hot-reload;
// in-flight validations finish against the registry they started with.
func (v *Validator) SetConsumers(consumers map[string]string) {
	cp := make(map[string]string, len(consumers))
	for k, val := range consumers {
		cp[k] = val
	}
	v.mu.Lock()
	v.consumers = cp
	v.mu.Unlock()
}

// Validate checks a launch request. method and targetURL identify the
// endpoint the platform signed against; form is the full POST body.
// Returns nil for a valid launch, a terminal error for bad credentials,
// or ErrStaleTimestamp when only the freshness check failed.
func (v *Validator) Validate(method, targetURL string, form url.Values, now time.Time) error {
	if form.Get("lti_message_type") != LaunchMessageType {
		return ErrNotLaunch
	}

	key := form.Get("oauth_consumer_key")
	secret, ok := v.secretFor(key)
	if !ok {
		return ErrUnknownConsumer
	}

	if m := form.Get("oauth_signature_method"); m != "HMAC-SHA1" {
		return fmt.Errorf("%w: unsupported signature method %q", ErrBadSignature, m)
	}

	got := form.Get("oauth_signature")
	want := Sign(method, targetURL, form, secret)
	if !hmac.Equal([]byte(got), []byte(want)) {
		return ErrBadSignature
	}

	// Signature is good from here on: the timestamp and nonce are
	// authentic platform values, not attacker-controlled.
	ts, err := strconv.ParseInt(form.Get("oauth_timestamp"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: unparseable timestamp", ErrBadSignature)
	}
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > v.window || sent.Sub(now) > v.window {
		return ErrStaleTimestamp
	}

	nonce := form.Get("oauth_nonce")
	if nonce == "" {
		return fmt.Errorf("%w: missing nonce", ErrBadSignature)
	}
	if !v.recordNonce(key+":"+nonce, now) {
		return ErrNonceReplay
	}

	return nil
}

func (v *Validator) secretFor(key string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	secret, ok := v.consumers[key]
	return secret, ok
}

// recordNonce returns false if the nonce was already seen inside the
// window. Expired entries are pruned on the way through.
func (v *Validator) recordNonce(key string, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	for k, expiry := range v.seen {
		if now.After(expiry) {
			delete(v.seen, k)
		}
	}

	if _, dup := v.seen[key]; dup {
		return false
	}
	v.seen[key] = now.Add(2 * v.window)
	return true
}
