package lti

import (
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"
)

const (
	testKey    = "course-tool-key"
	testSecret = "course-tool-secret"
	testURL    = "https://tool.example.edu/"
)

func testValidator() *Validator {
	return NewValidator(map[string]string{testKey: testSecret}, 5*time.Minute)
}

// signedLaunch builds a fully signed launch body as the platform would.
func signedLaunch(now time.Time, nonce string) url.Values {
	form := url.Values{}
	form.Set("lti_message_type", LaunchMessageType)
	form.Set("context_id", "abcd1234")
	form.Set("custom_canvas_course_id", "C1")
	form.Set("ext_roles", "urn:lti:role:ims/lis/Instructor")
	form.Set("lis_person_sourcedid", "person1")
	form.Set("oauth_consumer_key", testKey)
	form.Set("oauth_signature_method", "HMAC-SHA1")
	form.Set("oauth_timestamp", fmt.Sprintf("%d", now.Unix()))
	form.Set("oauth_nonce", nonce)
	form.Set("oauth_version", "1.0")
	form.Set("oauth_signature", Sign("POST", testURL, form, testSecret))
	return form
}

func TestValidLaunch(t *testing.T) {
	v := testValidator()
	now := time.Now()
	if err := v.Validate("POST", testURL, signedLaunch(now, "n1"), now); err != nil {
		t.Fatalf("valid launch rejected: %v", err)
	}
}

func TestWrongMessageType(t *testing.T) {
	v := testValidator()
	now := time.Now()
	form := signedLaunch(now, "n1")
	form.Set("lti_message_type", "ContentItemSelectionRequest")
	err := v.Validate("POST", testURL, form, now)
	if !errors.Is(err, ErrNotLaunch) {
		t.Errorf("expected ErrNotLaunch, got %v", err)
	}
	if !IsAuthenticationErr(err) {
		t.Error("ErrNotLaunch should classify as authentication error")
	}
}

func TestUnknownConsumerKey(t *testing.T) {
	v := testValidator()
	now := time.Now()
	form := signedLaunch(now, "n1")
	form.Set("oauth_consumer_key", "who-is-this")
	err := v.Validate("POST", testURL, form, now)
	if !errors.Is(err, ErrUnknownConsumer) {
		t.Errorf("expected ErrUnknownConsumer, got %v", err)
	}
}

func TestTamperedBodyRejected(t *testing.T) {
	v := testValidator()
	now := time.Now()
	form := signedLaunch(now, "n1")
	form.Set("ext_roles", "urn:lti:instrole:ims/lis/Administrator") // signed as Instructor
	err := v.Validate("POST", testURL, form, now)
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("expected ErrBadSignature, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	v := testValidator()
	now := time.Now()
	form := signedLaunch(now, "n1")
	form.Set("oauth_signature", Sign("POST", testURL, form, "other-secret"))
	err := v.Validate("POST", testURL, form, now)
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("expected ErrBadSignature, got %v", err)
	}
}

func TestWrongEndpointRejected(t *testing.T) {
	// A launch signed for another tool URL must not validate here.
	v := testValidator()
	now := time.Now()
	form := signedLaunch(now, "n1")
	err := v.Validate("POST", "https://other.example.edu/", form, now)
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("expected ErrBadSignature, got %v", err)
	}
}

func TestNonceReplay(t *testing.T) {
	v := testValidator()
	now := time.Now()
	form := signedLaunch(now, "n1")
	if err := v.Validate("POST", testURL, form, now); err != nil {
		t.Fatalf("first use rejected: %v", err)
	}
	err := v.Validate("POST", testURL, form, now)
	if !errors.Is(err, ErrNonceReplay) {
		t.Errorf("expected ErrNonceReplay on second use, got %v", err)
	}
}

func TestDistinctNoncesAccepted(t *testing.T) {
	v := testValidator()
	now := time.Now()
	if err := v.Validate("POST", testURL, signedLaunch(now, "n1"), now); err != nil {
		t.Fatalf("first launch rejected: %v", err)
	}
	if err := v.Validate("POST", testURL, signedLaunch(now, "n2"), now); err != nil {
		t.Fatalf("second launch rejected: %v", err)
	}
}

func TestStaleTimestampIsTransient(t *testing.T) {
	v := testValidator()
	signedAt := time.Now().Add(-time.Hour)
	form := signedLaunch(signedAt, "n1")
	err := v.Validate("POST", testURL, form, time.Now())
	if !errors.Is(err, ErrStaleTimestamp) {
		t.Fatalf("expected ErrStaleTimestamp, got %v", err)
	}
	if IsAuthenticationErr(err) {
		t.Error("stale timestamp must not classify as terminal")
	}
	if !IsTransientErr(err) {
		t.Error("stale timestamp should classify as transient")
	}
}

func TestSetConsumersRotatesSecrets(t *testing.T) {
	v := testValidator()
	now := time.Now()

	v.SetConsumers(map[string]string{testKey: "rotated-secret"})

	if err := v.Validate("POST", testURL, signedLaunch(now, "n1"), now); !errors.Is(err, ErrBadSignature) {
		t.Errorf("old secret should no longer verify, got %v", err)
	}

	form := url.Values{}
	form.Set("lti_message_type", LaunchMessageType)
	form.Set("context_id", "abcd1234")
	form.Set("oauth_consumer_key", testKey)
	form.Set("oauth_signature_method", "HMAC-SHA1")
	form.Set("oauth_timestamp", fmt.Sprintf("%d", now.Unix()))
	form.Set("oauth_nonce", "n2")
	form.Set("oauth_signature", Sign("POST", testURL, form, "rotated-secret"))
	if err := v.Validate("POST", testURL, form, now); err != nil {
		t.Errorf("rotated secret rejected: %v", err)
	}
}

func TestSignEncodesReservedCharacters(t *testing.T) {
	// Parameter values with spaces and symbols must survive the
	// percent-encoding round trip into a stable signature.
	form := url.Values{}
	form.Set("lti_message_type", LaunchMessageType)
	form.Set("resource_link_title", "Policy & Ethics ~ Fall '26")
	sig1 := Sign("POST", testURL, form, testSecret)
	sig2 := Sign("post", testURL, form, testSecret)
	if sig1 == "" {
		t.Fatal("empty signature")
	}
	if sig1 != sig2 {
		t.Error("method casing should not change the signature")
	}
}

func TestParseLaunch(t *testing.T) {
	form := url.Values{}
	form.Set("context_id", "ctx1")
	form.Set("custom_canvas_course_id", "C1")
	form.Set("ext_roles", "urn:lti:role:ims/lis/Learner")
	form.Set("lis_person_sourcedid", "p1")

	p, err := ParseLaunch(form)
	if err != nil {
		t.Fatalf("ParseLaunch failed: %v", err)
	}
	if p.CourseID != "C1" || p.ContextID != "ctx1" || p.PersonID != "p1" {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestParseLaunchCourseFallsBackToContext(t *testing.T) {
	form := url.Values{}
	form.Set("context_id", "ctx1")
	p, err := ParseLaunch(form)
	if err != nil {
		t.Fatalf("ParseLaunch failed: %v", err)
	}
	if p.CourseID != "ctx1" {
		t.Errorf("expected fallback to context_id, got %q", p.CourseID)
	}
}

func TestParseLaunchMissingContext(t *testing.T) {
	_, err := ParseLaunch(url.Values{})
	if !errors.Is(err, ErrMissingContext) {
		t.Errorf("expected ErrMissingContext, got %v", err)
	}
}
