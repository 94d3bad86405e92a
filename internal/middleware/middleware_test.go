package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, scope string, expires *jwt.NumericDate) string {
	t.Helper()
	token := jwt.NewWithClaims(method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-1",
			ExpiresAt: expires,
		},
		Scope: scope,
	})
	var key interface{} = []byte(secret)
	if method == jwt.SigningMethodNone {
		key = jwt.UnsafeAllowNoneSignatureType
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestRequireToken(t *testing.T) {
	var gotAgent string
	h := RequireToken(testSecret, ScopeAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = Agent(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))
	hs256 := jwt.SigningMethodHS256
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid admin", "Bearer " + signToken(t, testSecret, hs256, ScopeAdmin, future), http.StatusNoContent},
		{"admin among scopes", "Bearer " + signToken(t, testSecret, hs256, "read admin", future), http.StatusNoContent},
		{"hs512", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, ScopeAdmin, future), http.StatusNoContent},
		{"lowercase scheme", "bearer " + signToken(t, testSecret, hs256, ScopeAdmin, future), http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", hs256, ScopeAdmin, future), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, hs256, ScopeAdmin, past), http.StatusUnauthorized},
		{"no expiry", "Bearer " + signToken(t, testSecret, hs256, ScopeAdmin, nil), http.StatusUnauthorized},
		{"unsigned", "Bearer " + signToken(t, testSecret, jwt.SigningMethodNone, ScopeAdmin, future), http.StatusUnauthorized},
		{"scope prefix only", "Bearer " + signToken(t, testSecret, hs256, "administrator", future), http.StatusForbidden},
		{"no admin scope", "Bearer " + signToken(t, testSecret, hs256, "read", future), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotAgent = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/leads", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusNoContent && gotAgent != "agent-1" {
				t.Errorf("agent = %q", gotAgent)
			}
		})
	}
}

func TestAgent_Unauthenticated(t *testing.T) {
	if got := Agent(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("Agent() = %q, want empty", got)
	}
}

func TestLogging_CorrelationID(t *testing.T) {
	var seen string
	h := Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" || rec.Header().Get("X-Correlation-ID") != "abc-123" {
		t.Errorf("correlation id = %q / %q", seen, rec.Header().Get("X-Correlation-ID"))
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("a correlation id should be generated")
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestValidateMessageText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"ok", "¿Cuánto cuesta?", false},
		{"max", strings.Repeat("a", MaxMessageBytes), false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", MaxMessageBytes+1), true},
		{"invalid utf8", "hola \xff", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateMessageText(tt.text); (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessageText() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSessionID(t *testing.T) {
	if err := ValidateSessionID("0190b6f4-6c1e-7a8e-9f00-1234567890ab"); err != nil {
		t.Errorf("ValidateSessionID() error = %v", err)
	}
	if err := ValidateSessionID("not-a-uuid"); err == nil {
		t.Error("expected an error")
	}
}

func TestValidateChannel(t *testing.T) {
	for _, ok := range []string{"web", "whatsapp", "landing-page", ""} {
		if err := ValidateChannel(ok); err != nil {
			t.Errorf("ValidateChannel(%q) error = %v", ok, err)
		}
	}
	for _, bad := range []string{"Web", "a.b", strings.Repeat("x", 33)} {
		if err := ValidateChannel(bad); err == nil {
			t.Errorf("ValidateChannel(%q) should fail", bad)
		}
	}
}
