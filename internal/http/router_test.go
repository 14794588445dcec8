package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	intconfig "seatledger/internal/config"
	"seatledger/internal/http/handlers"
	"seatledger/internal/services"
	"seatledger/internal/tier"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "router-secret"

func init() { gin.SetMode(gin.TestMode) }

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	engine := services.NewEngine(conn, tier.Default(), services.EventSink{}, services.EngineOptions{})
	env := intconfig.Env{JWTSecret: testSecret, IdempotencyTTL: time.Hour}
	return NewRouter(env, handlers.New(engine, conn, time.Hour), nil), mock
}

func bearer(t *testing.T, sub, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub}
	if role != "" {
		claims["role"] = role
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + raw
}

func do(r *gin.Engine, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWalletBalanceForOwner(t *testing.T) {
	r, mock := newTestRouter(t)
	mock.ExpectQuery("FROM customers WHERE id = \\?").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tier", "loyalty_points", "wallet_balance"}).
			AddRow(7, "Tester", "silver", 1200, "120.50"))

	w := do(r, http.MethodGet, "/api/wallet/7/balance", bearer(t, "7", ""), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got struct {
		Body struct {
			CustomerID int64   `json:"customerId"`
			Balance    float64 `json:"balance"`
		} `json:"body"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Body.CustomerID != 7 || got.Body.Balance != 120.5 {
		t.Fatalf("unexpected body %+v", got.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWalletOfAnotherCustomerIsForbidden(t *testing.T) {
	r, mock := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/wallet/8/balance", bearer(t, "7", ""), "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no queries: %v", err)
	}
}

func TestSecuredRoutesNeedToken(t *testing.T) {
	r, _ := newTestRouter(t)
	if w := do(r, http.MethodGet, "/api/bookings/1", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/admin/trips/3/complete", bearer(t, "7", "customer"), "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestCreateBookingRejectsEmptyBody(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/bookings", bearer(t, "7", ""), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateBookingValidatesBeforeTouchingDB(t *testing.T) {
	r, mock := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/bookings", bearer(t, "7", ""),
		`{"tripId":3,"customerId":7,"seatId":"1A","paymentMethod":"barter"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown payment method, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no queries: %v", err)
	}
}

func TestTierConfigsArePublic(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/api/tiers/configs", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got struct {
		Body struct {
			Tiers []struct {
				Tier      string `json:"tier"`
				MinPoints int64  `json:"minPoints"`
			} `json:"tiers"`
			UnitsPerPoint int64 `json:"unitsPerPoint"`
		} `json:"body"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Body.Tiers) != 4 || got.Body.Tiers[3].Tier != "platinum" || got.Body.Tiers[3].MinPoints != 10000 {
		t.Fatalf("unexpected tiers %+v", got.Body.Tiers)
	}
	if got.Body.UnitsPerPoint != 10 {
		t.Fatalf("expected 10 units per point, got %d", got.Body.UnitsPerPoint)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/api/nope", "", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"status":false`) {
		t.Fatalf("expected 404 envelope, got %d %s", w.Code, w.Body.String())
	}
}

func TestGroupBookingAcceptsSeatListString(t *testing.T) {
	r, mock := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/bookings/group", bearer(t, "7", ""),
		`{"tripId":3,"customerId":7,"seatList":"1a, 1A","paymentMethod":"cash"}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "duplicate seat") {
		t.Fatalf("expected duplicate seat rejection, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no queries: %v", err)
	}
}
