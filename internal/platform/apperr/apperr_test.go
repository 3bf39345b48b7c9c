package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{Validation("bad %s", "input"), CodeValidation, http.StatusBadRequest},
		{Unauthorized("no token"), CodeUnauthorized, http.StatusUnauthorized},
		{Forbidden("nope"), CodeForbidden, http.StatusForbidden},
		{NotFound("gone"), CodeNotFound, http.StatusNotFound},
		{Conflict("taken"), CodeConflict, http.StatusConflict},
		{InvalidTransition("stuck"), CodeInvalidTransition, http.StatusConflict},
		{DoubleBooked("busy"), CodeDoubleBooked, http.StatusConflict},
		{Internal("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		ae := From(tc.err)
		if ae == nil {
			t.Fatalf("From(%v) = nil", tc.err)
		}
		if ae.Code != tc.code || ae.Status != tc.status {
			t.Errorf("%v: code/status = %s/%d, want %s/%d", tc.err, ae.Code, ae.Status, tc.code, tc.status)
		}
	}
}

func TestFromWrapped(t *testing.T) {
	inner := NotFound("user missing")
	wrapped := fmt.Errorf("loading user: %w", inner)

	ae := From(wrapped)
	if ae == nil || ae.Code != CodeNotFound {
		t.Errorf("From(wrapped) = %v, want not_found", ae)
	}
	if From(errors.New("plain")) != nil {
		t.Error("From(plain error) should be nil")
	}
}

func render(t *testing.T, err error) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop())
	e.GET("/boom", func(c echo.Context) error { return err })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec, body.Error.Code
}

func TestHTTPErrorHandler(t *testing.T) {
	rec, code := render(t, Forbidden("outside your scope"))
	if rec.Code != http.StatusForbidden || code != CodeForbidden {
		t.Errorf("status/code = %d/%s, want 403/forbidden", rec.Code, code)
	}

	rec, code = render(t, echo.NewHTTPError(http.StatusNotFound, "no route"))
	if rec.Code != http.StatusNotFound || code != CodeNotFound {
		t.Errorf("echo error: status/code = %d/%s, want 404/not_found", rec.Code, code)
	}

	// Unknown errors must not leak their message.
	rec, code = render(t, errors.New("pq: connection refused"))
	if rec.Code != http.StatusInternalServerError || code != CodeInternal {
		t.Errorf("unknown error: status/code = %d/%s, want 500/internal", rec.Code, code)
	}
	if body := rec.Body.String(); strings.Contains(body, "connection refused") {
		t.Errorf("internal error leaked: %s", body)
	}
}
