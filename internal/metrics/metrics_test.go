package metrics

import (
	"strings"
	"testing"
)

func TestRecordRequestAndExport(t *testing.T) {
	RecordRequest("GET", "/v1/jobs", 200, 42)

	out := Export()
	if !strings.Contains(out, "scanengine_http_requests_total{method=\"GET\",path=\"/v1/jobs\",status=\"200\"}") {
		t.Fatalf("expected HTTP request metric for GET /v1/jobs in export, got:\n%s", out)
	}
	if !strings.Contains(out, "scanengine_http_request_duration_ms_sum") || !strings.Contains(out, "scanengine_http_request_duration_ms_count") {
		t.Fatalf("expected latency metrics headers in export, got:\n%s", out)
	}
}

func TestRecordJobAndPageTerminal(t *testing.T) {
	RecordJobTerminal("site", "completed")
	RecordJobTerminal("single", "failed")
	RecordPageTerminal("completed")
	RecordPageTerminal("failed")

	out := Export()
	if !strings.Contains(out, "scanengine_jobs_total{mode=\"site\",status=\"completed\"}") {
		t.Fatalf("expected jobs_total for site/completed, got:\n%s", out)
	}
	if !strings.Contains(out, "scanengine_jobs_total{mode=\"single\",status=\"failed\"}") {
		t.Fatalf("expected jobs_total for single/failed, got:\n%s", out)
	}
	if !strings.Contains(out, "scanengine_pages_total{status=\"completed\"}") {
		t.Fatalf("expected pages_total for completed, got:\n%s", out)
	}
	if !strings.Contains(out, "scanengine_pages_total{status=\"failed\"}") {
		t.Fatalf("expected pages_total for failed, got:\n%s", out)
	}
}

func TestRecordTaskEvent(t *testing.T) {
	RecordTaskEvent("page_completed")

	out := Export()
	if !strings.Contains(out, "scanengine_task_events_total{type=\"page_completed\"}") {
		t.Fatalf("expected task_events_total for page_completed, got:\n%s", out)
	}
}

func TestRecordRetentionJobs(t *testing.T) {
	RecordRetentionJobs(3)
	RecordRetentionJobs(0)

	out := Export()
	if !strings.Contains(out, "scanengine_retention_jobs_deleted_total{job_type=\"scan\"}") {
		t.Fatalf("expected retention_jobs_deleted_total for scan, got:\n%s", out)
	}
}
