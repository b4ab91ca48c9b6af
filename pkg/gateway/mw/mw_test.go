package mw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bragi-audio/bragi/pkg/core"
	"github.com/bragi-audio/bragi/pkg/gateway/apierror"
	"github.com/bragi-audio/bragi/pkg/gateway/auth"
	"github.com/bragi-audio/bragi/pkg/gateway/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/models", nil))

	if seen == "" || !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id=%q", seen)
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("header=%q, ctx=%q", rec.Header().Get("X-Request-ID"), seen)
	}
}

func TestRequestIDPreserved(t *testing.T) {
	h := RequestID(okHandler())
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req_given")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") != "req_given" {
		t.Fatalf("caller-supplied id dropped")
	}
}

type fakeKeys struct {
	valid   map[string]string // raw -> key id
	touched chan string
}

func (f *fakeKeys) ValidateKey(ctx context.Context, raw string) (string, string, error) {
	id, ok := f.valid[raw]
	if !ok {
		return "", "", nil
	}
	return id, "test-key", nil
}

func (f *fakeKeys) TouchKey(ctx context.Context, keyID string) error {
	if f.touched != nil {
		f.touched <- keyID
	}
	return nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apierror.Envelope {
	t.Helper()
	var env apierror.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestAuthMissingHeader(t *testing.T) {
	h := Auth(&fakeKeys{}, nil, okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/models", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Type != core.ErrAuthentication {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestAuthBadKey(t *testing.T) {
	h := Auth(&fakeKeys{valid: map[string]string{"br-good": "id1"}}, nil, okHandler())
	req := httptest.NewRequest("GET", "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer br-evil")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestAuthValidKeyTouchesAndPassesPrincipal(t *testing.T) {
	keys := &fakeKeys{valid: map[string]string{"br-good": "id1"}, touched: make(chan string, 1)}
	var principal *auth.Principal
	h := Auth(keys, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ = auth.PrincipalFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer br-good")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if principal == nil || principal.KeyID != "id1" {
		t.Fatalf("principal=%+v", principal)
	}
	if got := <-keys.touched; got != "id1" {
		t.Fatalf("touched=%q", got)
	}
}

func TestAuthExemptPaths(t *testing.T) {
	h := Auth(&fakeKeys{}, nil, okHandler())
	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d, want exempt", path, rec.Code)
		}
	}
}

func TestRateLimitDenies(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RPS: 1, Burst: 1})
	h := RateLimit(limiter, okHandler())

	req := httptest.NewRequest("POST", "/v1/audio/speech", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status=%d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After missing")
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Type != core.ErrRateLimit {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestRateLimitSkipsProbes(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RPS: 1, Burst: 1})
	h := RateLimit(limiter, okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("probe %d limited", i)
		}
	}
}

func TestRecoverWritesEnvelope(t *testing.T) {
	h := Recover(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Message != "internal error" {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://app.example.com"}, okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/audio/speech", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("allow-origin=%q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign origin preflight status=%d", rec.Code)
	}
}

func TestCORSWildcard(t *testing.T) {
	h := CORS([]string{"*"}, okHandler())
	req := httptest.NewRequest("GET", "/v1/models", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "https://anywhere.example.com" {
		t.Fatalf("wildcard origin not reflected")
	}
}
