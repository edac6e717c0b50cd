package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"seoscan/internal/eventbus"
	"seoscan/internal/query"
	"seoscan/internal/scheduler"
	"seoscan/internal/store"
)

func newTestApp() *fiber.App {
	return fiber.New()
}

func withLocals(app *fiber.App) {
	st := &store.Store{}
	sched := scheduler.New(nil, noopRunner{}, nil, nil, scheduler.Config{})
	qsvc := query.New(st)

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("store", st)
		c.Locals("scheduler", sched)
		c.Locals("query", qsvc)
		return c.Next()
	})
}

type noopRunner struct{}

func (noopRunner) RunJob(_ context.Context, _ uuid.UUID) error { return nil }

func TestCreateScan_InvalidBody(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Post("/api/scans", createScanHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/scans", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateScan_MissingTargetURL(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Post("/api/scans", createScanHandler)

	body := `{"mode":"single"}`
	req := httptest.NewRequest(http.MethodPost, "/api/scans", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateScan_InvalidMode(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Post("/api/scans", createScanHandler)

	body := `{"targetUrl":"https://example.com","mode":"bogus"}`
	req := httptest.NewRequest(http.MethodPost, "/api/scans", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateScan_SiteDepthOutOfRange(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Post("/api/scans", createScanHandler)

	body := `{"targetUrl":"https://example.com","mode":"site","options":{"siteDepth":20}}`
	req := httptest.NewRequest(http.MethodPost, "/api/scans", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetScan_InvalidID(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Get("/api/scans/:id", getScanHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/not-a-uuid", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDeleteScan_InvalidID(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Delete("/api/scans/:id", deleteScanHandler)

	req := httptest.NewRequest(http.MethodDelete, "/api/scans/not-a-uuid", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCancelScan_InvalidID(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Post("/api/scans/:id/cancel", cancelScanHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/scans/not-a-uuid/cancel", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCancelScan_UnknownJobReturnsConflict(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Post("/api/scans/:id/cancel", cancelScanHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/scans/"+uuid.New().String()+"/cancel", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestListPages_InvalidJobID(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Get("/api/scans/:id/pages", listPagesHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/not-a-uuid/pages", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetPage_InvalidPageID(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Get("/api/scans/:id/pages/:pageId", getPageHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/"+uuid.New().String()+"/pages/not-a-uuid", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestQueueState_ReturnsEmptyState(t *testing.T) {
	app := newTestApp()
	withLocals(app)
	app.Get("/api/scans/queue/state", queueStateHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/queue/state", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestLiveProgress_MissingJobID(t *testing.T) {
	app := newTestApp()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("bus", (*eventbus.Bus)(nil))
		return c.Next()
	})
	app.Get("/api/scans/progress/live", liveProgressHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/progress/live", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
