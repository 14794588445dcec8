package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"seatledger/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

// callerEcho answers with the caller the middleware chain produced.
func callerEcho(c *gin.Context) {
	rc := GetCaller(c)
	c.JSON(http.StatusOK, gin.H{"actor": rc.Actor(), "admin": rc.IsAdmin()})
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestParseTokenMapsClaims(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{"sub": "7", "role": " Admin "})
	rc, err := ParseToken(raw, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rc.UserID != 7 || rc.Role != domain.RoleAdmin || rc.Anonymous {
		t.Fatalf("unexpected caller %+v", rc)
	}
	if _, err := ParseToken(raw, "other-secret"); err == nil {
		t.Fatalf("expected signature error")
	}
	if _, err := ParseToken(signToken(t, jwt.MapClaims{"sub": "abc"}), testSecret); err == nil {
		t.Fatalf("expected error for non numeric subject")
	}
}

func TestIdentityRequiresBearerWhenSecretSet(t *testing.T) {
	r := gin.New()
	r.GET("/me", Identity(testSecret), callerEcho)

	if w := serve(r, http.MethodGet, "/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer nope"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}

	w := serve(r, http.MethodGet, "/me", map[string]string{
		"Authorization": "Bearer " + signToken(t, jwt.MapClaims{"sub": "7"}),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"actor":"user:7"`) {
		t.Fatalf("expected user:7 actor, got %s", w.Body.String())
	}
}

func TestIdentityAnonymousWithoutSecret(t *testing.T) {
	r := gin.New()
	r.GET("/me", Identity(""), callerEcho)

	w := serve(r, http.MethodGet, "/me", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"actor":"system"`) {
		t.Fatalf("expected anonymous system caller, got %d %s", w.Code, w.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	r := gin.New()
	r.POST("/admin", Identity(testSecret), RequireAdmin(string(hash)), callerEcho)

	user := "Bearer " + signToken(t, jwt.MapClaims{"sub": "7", "role": "customer"})
	admin := "Bearer " + signToken(t, jwt.MapClaims{"sub": "1", "role": "admin"})

	if w := serve(r, http.MethodPost, "/admin", map[string]string{"Authorization": user}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/admin", map[string]string{"Authorization": admin}); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d", w.Code)
	}
	w := serve(r, http.MethodPost, "/admin", map[string]string{"Authorization": user, "X-Admin-Key": "letmein"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"admin":true`) {
		t.Fatalf("expected admin key to elevate, got %d %s", w.Code, w.Body.String())
	}
	if w := serve(r, http.MethodPost, "/admin", map[string]string{"Authorization": user, "X-Admin-Key": "wrong"}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong key, got %d", w.Code)
	}
}

func TestRequireAdminOpenInAnonymousMode(t *testing.T) {
	r := gin.New()
	r.POST("/admin", Identity(""), RequireAdmin(""), callerEcho)
	if w := serve(r, http.MethodPost, "/admin", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequestIDKeepsOrReplacesHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := serve(r, http.MethodGet, "/", map[string]string{"X-Request-ID": "abc-123"})
	if w.Body.String() != "abc-123" || w.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("expected request id to pass through, got %q", w.Body.String())
	}
	w = serve(r, http.MethodGet, "/", map[string]string{"X-Request-ID": strings.Repeat("x", 65)})
	if len(w.Body.String()) != 36 {
		t.Fatalf("expected generated uuid, got %q", w.Body.String())
	}
}

func TestIdempotencyKeyIsScoped(t *testing.T) {
	a := IdempotencyKey("user:7", http.MethodPost, "/api/bookings", "k1")
	if a != IdempotencyKey("user:7", http.MethodPost, "/api/bookings", "k1") {
		t.Fatalf("expected deterministic key")
	}
	if !strings.HasPrefix(a, "idem:") || len(a) != len("idem:")+32 {
		t.Fatalf("unexpected key shape %q", a)
	}
	for _, other := range []string{
		IdempotencyKey("user:8", http.MethodPost, "/api/bookings", "k1"),
		IdempotencyKey("user:7", http.MethodPatch, "/api/bookings", "k1"),
		IdempotencyKey("user:7", http.MethodPost, "/api/bookings/group", "k1"),
		IdempotencyKey("user:7", http.MethodPost, "/api/bookings", "k2"),
	} {
		if other == a {
			t.Fatalf("expected distinct key for different scope")
		}
	}
}

func TestIdempotencyWithoutRedisPassesThrough(t *testing.T) {
	calls := 0
	r := gin.New()
	r.POST("/x", Idempotency(nil, 0), func(c *gin.Context) {
		calls++
		c.Status(http.StatusCreated)
	})
	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodPost, "/x", map[string]string{"Idempotency-Key": "same"}); w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, got %d", calls)
	}
}

func TestCORSWildcardAllowsAnyOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/", map[string]string{"Origin": "https://example.org"})
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCallerWithoutIdentityIsNotPrivileged(t *testing.T) {
	r := gin.New()
	r.POST("/admin", RequireAdmin(""), callerEcho)
	r.GET("/me", callerEcho)

	if w := serve(r, http.MethodPost, "/admin", nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without identity, got %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/me", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"admin":false`) {
		t.Fatalf("expected non-admin caller, got %d %s", w.Code, w.Body.String())
	}
}
