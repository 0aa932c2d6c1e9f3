package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationID(t *testing.T) {
	var seen string
	h := CorrelationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationCtx(r.Context())
	}))

	tests := []struct {
		name     string
		inbound  string
		takeOver bool
	}{
		{"none", "", false},
		{"well formed", "req-42_a.b", true},
		{"with spaces", "a b", false},
		{"header injection", "abc\r\nX-Evil: 1", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header.Set(CorrelationIDHeader, tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))
			if tt.takeOver {
				assert.Equal(t, tt.inbound, seen)
			} else {
				assert.NotEqual(t, tt.inbound, seen)
				assert.Len(t, seen, 20) // xid
			}
		})
	}
}

func TestRecover(t *testing.T) {
	h := RecoverMiddleware(CorrelationIDMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal", body["kind"])
	assert.Equal(t, rec.Header().Get(CorrelationIDHeader), body["correlation_id"])
}

func TestMaxBytes(t *testing.T) {
	h := MaxBytes(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("1234")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("12345")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := AdminAuth(key)(ok)

	sign := func(claims jwt.MapClaims, k []byte) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k)
		require.NoError(t, err)
		return s
	}
	valid, err := IssueAdminToken(key, "alice", time.Minute)
	require.NoError(t, err)
	exp := time.Now().Add(time.Minute).Unix()

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", valid, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"other key", sign(jwt.MapClaims{"iss": adminIssuer, "exp": exp, "roles": []string{AdminRole}}, []byte("other")), http.StatusUnauthorized},
		{"other issuer", sign(jwt.MapClaims{"iss": "someone", "exp": exp, "roles": []string{AdminRole}}, key), http.StatusUnauthorized},
		{"no expiry", sign(jwt.MapClaims{"iss": adminIssuer, "roles": []string{AdminRole}}, key), http.StatusUnauthorized},
		{"expired", sign(jwt.MapClaims{"iss": adminIssuer, "exp": time.Now().Add(-time.Hour).Unix(), "roles": []string{AdminRole}}, key), http.StatusUnauthorized},
		{"no roles", sign(jwt.MapClaims{"iss": adminIssuer, "exp": exp}, key), http.StatusUnauthorized},
		{"not admin", sign(jwt.MapClaims{"iss": adminIssuer, "exp": exp, "roles": []string{"viewer"}}, key), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("disabled without key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		AdminAuth(nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	_, err = IssueAdminToken(nil, "x", time.Minute)
	assert.Error(t, err)
}
