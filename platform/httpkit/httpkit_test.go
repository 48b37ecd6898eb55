package httpkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"visitor_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtConfig struct{ secret string }

func (c jwtConfig) GetJWTAccessSecret() string { return c.secret }

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestAuthRequiredPopulatesIdentity(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	token := signToken(t, "secret", jwt.MapClaims{
		"sub":       userID.String(),
		"tenant_id": tenantID.String(),
		"roles":     []string{RoleAdmin},
		"type":      "access",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	router := gin.New()
	var got Identity
	router.GET("/me", AuthRequired(jwtConfig{secret: "secret"}), RequireRole(RoleAdmin, RoleEmployee), func(c *gin.Context) {
		got = MustGetIdentity(c)
		OK(c, "ok", nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.UserID() != userID || got.TenantID() == nil || *got.TenantID() != tenantID {
		t.Fatalf("unexpected identity %v %v", got.UserID(), got.TenantID())
	}
	if !got.HasRole(RoleAdmin) {
		t.Fatalf("expected admin role")
	}
}

func TestAuthRequiredRejectsRefreshTokens(t *testing.T) {
	token := signToken(t, "secret", jwt.MapClaims{"sub": uuid.NewString(), "type": "refresh"})

	router := gin.New()
	router.GET("/me", AuthRequired(jwtConfig{secret: "secret"}), func(c *gin.Context) { OK(c, "ok", nil) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Success || env.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	router := gin.New()
	router.GET("/admin", func(c *gin.Context) {
		c.Set(ContextRolesKey, []string{RoleEmployee})
	}, RequireRole(RoleAdmin), func(c *gin.Context) { OK(c, "ok", nil) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"conflict", apperr.Conflict("Employee already has an approved appointment at this time"), http.StatusConflict, "Employee already has an approved appointment at this time"},
		{"wrapped not found", fmt.Errorf("load: %w", apperr.NotFound("Appointment not found")), http.StatusNotFound, "Appointment not found"},
		{"untyped", errors.New("pq: connection reset"), http.StatusInternalServerError, msgInternalError},
		{"internal", apperr.Internal("failed to list"), http.StatusInternalServerError, msgInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			if !HandleError(c, tt.err) {
				t.Fatalf("expected error to be handled")
			}
			env := decodeEnvelope(t, rec)
			if rec.Code != tt.wantStatus || env.StatusCode != tt.wantStatus || env.Message != tt.wantMsg || env.Success {
				t.Fatalf("unexpected response %d %+v", rec.Code, env)
			}
		})
	}
}
