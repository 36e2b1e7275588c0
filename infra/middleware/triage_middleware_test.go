package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"triage_server/pkg/apperr"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(Recover())
	app.Use(RequestID())
	app.Use(SecurityHeaders())
	app.Use(RequestLogger())

	app.Get("/bad", func(c *fiber.Ctx) error {
		return apperr.BadRequest("invalid input").WithDetail("field", "text")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("unexpected")
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("kaboom")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	defer resp.Body.Close()
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		path       string
		wantStatus int
		wantCode   string
	}{
		{"/bad", fiber.StatusBadRequest, apperr.CodeBadRequest},
		{"/boom", fiber.StatusInternalServerError, apperr.CodeInternalError},
		{"/panic", fiber.StatusInternalServerError, apperr.CodeInternalError},
		{"/missing", fiber.StatusNotFound, "NOT_FOUND"},
	}

	app := newApp()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body := decodeError(t, resp)
			if body.Success || body.Error.Code != tt.wantCode {
				t.Errorf("unexpected body %+v", body)
			}
			if body.RequestID == "" {
				t.Error("expected request id in error body")
			}
		})
	}
}

func TestErrorHandlerDetails(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest(http.MethodGet, "/bad", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body := decodeError(t, resp)
	if body.Error.Details["field"] != "text" {
		t.Errorf("expected details to be forwarded, got %v", body.Error.Details)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "req-123" {
		t.Errorf("expected incoming request id to be echoed, got %q", got)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("expected generated uuid, got %q", got)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}
