package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/service"
	"github.com/capitalize-ai/omnilead/pkg/logger"
)

type stubTokens map[string]*service.Claims

func (s stubTokens) ParseToken(token string) (*service.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

var tokens = stubTokens{
	"sales-token": {RegisteredClaims: jwt.RegisteredClaims{Subject: "u-sales"}, Role: model.RoleSales},
	"admin-token": {RegisteredClaims: jwt.RegisteredClaims{Subject: "u-admin"}, Role: model.RoleAdmin},
}

func actorHandler(w http.ResponseWriter, r *http.Request) {
	a := GetActor(r.Context())
	_, _ = w.Write([]byte(a.UserID + ":" + string(a.Role)))
}

func TestAuth(t *testing.T) {
	h := Auth(tokens)(http.HandlerFunc(actorHandler))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid authorization header format"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "could not validate credentials"},
		{"valid", "bearer sales-token", http.StatusOK, "u-sales:sales"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := Auth(tokens)(RequireRole(model.RoleCounselor)(http.HandlerFunc(actorHandler)))

	for token, want := range map[string]int{"sales-token": http.StatusForbidden, "admin-token": http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, token)
	}
}

func TestRequireAnyRole(t *testing.T) {
	h := Auth(tokens)(RequireAnyRole(model.RoleSales)(http.HandlerFunc(actorHandler)))

	for token, want := range map[string]int{"sales-token": http.StatusOK, "admin-token": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, token)
	}
}

func TestLoggingCorrelationID(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Logging(logger.NewNop()))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetCorrelationID(r.Context())))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "corr-1", rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, "corr-1", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestRequestLoggerCarriesUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	r := chi.NewRouter()
	r.Use(Logging(log))
	r.With(Auth(tokens)).Get("/me", func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	req.Header.Set("X-Correlation-ID", "corr-9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		fields := entry.ContextMap()
		assert.Equal(t, "corr-9", fields["correlation_id"], entry.Message)
		assert.Equal(t, "u-admin", fields["user_id"], entry.Message)
		assert.Equal(t, "admin", fields["role"], entry.Message)
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestChannelRateLimit(t *testing.T) {
	r := chi.NewRouter()
	r.With(ChannelRateLimit(2, time.Minute)).Post("/webhooks/{channel}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	post := func(channel, ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/"+channel, nil)
		req.RemoteAddr = ip + ":443"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	// Deliveries from different platform addresses share the channel budget.
	assert.Equal(t, http.StatusNoContent, post("whatsapp", "10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, post("whatsapp", "10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, post("whatsapp", "10.0.0.3"))

	// Other channels keep their own budget.
	assert.Equal(t, http.StatusNoContent, post("facebook", "10.0.0.1"))
}

func TestDecodeAndValidate(t *testing.T) {
	var req model.RegisterRequest

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"short","full_name":"A","role":"owner"}`))
	err := DecodeAndValidate(r, &req)
	require.ErrorIs(t, err, ErrInvalidBody)
	assert.Contains(t, err.Error(), "password failed min")
	assert.Contains(t, err.Error(), "role failed oneof")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	assert.ErrorIs(t, DecodeAndValidate(r, &req), ErrInvalidBody)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"longenough","full_name":"A","role":"sales","phone":"+15551234567"}`))
	assert.NoError(t, DecodeAndValidate(r, &req))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("0190a5c4-7b1e-7c3a-9d2e-1f2a3b4c5d6e"))
	assert.Error(t, ValidateID("not-a-uuid"))
}
