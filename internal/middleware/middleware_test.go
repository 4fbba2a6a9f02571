package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trade-journal/internal/service"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*service.JWTClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &service.JWTClaims{UserID: 42, Username: "alice"}, nil
}

func newRouter(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLoggerMiddleware(log))
	r.GET("/open", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })
	r.GET("/private", AuthMiddleware(stubValidator{}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "username": GetUsername(c)})
	})
	return r
}

func TestRequestLogger_AssignsAndLogsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newRouter(zap.New(core))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open?x=1", nil))

	id := w.Header().Get(HeaderRequestID)
	require.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, id, fields["request_id"])
	assert.Equal(t, "/open?x=1", fields["url"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestRequestLogger_ReusesClientIDAndWarnsOnClientError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newRouter(zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
	require.Len(t, logs.All(), 1)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(zap.NewNop())

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42,"username":"alice"}`, w.Body.String())
			}
		})
	}
}
