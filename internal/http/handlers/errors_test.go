package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"seatledger/internal/domain"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Body    json.RawMessage `json:"body"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func TestRespondDomainErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ValidationError{Field: "seatId", Msg: "required"}, http.StatusBadRequest},
		{"insufficient", domain.InsufficientBalanceError{CustomerID: 7, Balance: 100, Required: 500}, http.StatusBadRequest},
		{"unauthorized", domain.UnauthorizedError{Resource: "booking"}, http.StatusForbidden},
		{"not found", domain.NotFoundError{Resource: "trip"}, http.StatusNotFound},
		{"conflict", domain.ConflictError{Resource: "seat", Msg: "seat 1A is already booked"}, http.StatusConflict},
		{"wrapped conflict", errors.Join(errors.New("ctx"), domain.ConflictError{Resource: "seat"}), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondDomainError(c, tc.err)

			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			env := decode(t, w)
			if env.Status || env.Code != tc.want {
				t.Fatalf("unexpected envelope %+v", env)
			}
		})
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondDomainError(c, errors.New("dial tcp 10.0.0.5:3306: refused"))

	if env := decode(t, w); env.Message != "internal server error" {
		t.Fatalf("expected generic message, got %q", env.Message)
	}
}

func TestRespondOmitsEmptyBody(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respond(c, http.StatusOK, "seat blocked", nil)

	env := decode(t, w)
	if !env.Status || env.Message != "seat blocked" || env.Body != nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestParamIDRejectsNonPositive(t *testing.T) {
	for _, raw := range []string{"0", "-3", "abc", ""} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		if _, ok := paramID(c, "id"); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", raw, w.Code)
		}
	}
}

func TestPaginationAcceptsLimitAlias(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil)

	p := pagination(c)
	if p.Page != 3 || p.PageSize != 100 {
		t.Fatalf("expected page 3 size 100, got %+v", p)
	}
}
