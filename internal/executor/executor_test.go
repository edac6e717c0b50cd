package executor

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"seoscan/internal/model"
)

func TestErrJobCancelled_Message(t *testing.T) {
	if ErrJobCancelled.Error() != "job was cancelled by user" {
		t.Errorf("Error() = %q", ErrJobCancelled.Error())
	}
}

func TestResolveSiteOptions_UsesDefaultsWhenJobOptionsNil(t *testing.T) {
	job := model.Job{TargetURL: "https://example.com"}
	defaults := Options{
		DefaultMaxPages:  50,
		DefaultSiteDepth: 2,
		UserAgent:        "seoscan-bot",
		RequestTimeout:   5 * time.Second,
		RespectRobots:    true,
	}

	got := resolveSiteOptions(job, defaults)

	if got.MaxPages != 50 || got.DepthLimit != 2 || got.UserAgent != "seoscan-bot" {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if !got.RespectRobots {
		t.Error("expected RespectRobots to carry through from defaults")
	}
}

func TestResolveSiteOptions_JobOptionsOverrideDefaults(t *testing.T) {
	job := model.Job{
		TargetURL: "https://example.com",
		Options: &model.JobOptions{
			MaxPages:  10,
			SiteDepth: 1,
			UserAgent: "custom-agent",
		},
	}
	defaults := Options{DefaultMaxPages: 50, DefaultSiteDepth: 3, UserAgent: "seoscan-bot"}

	got := resolveSiteOptions(job, defaults)

	if got.MaxPages != 10 {
		t.Errorf("MaxPages = %d, want 10", got.MaxPages)
	}
	if got.DepthLimit != 1 {
		t.Errorf("DepthLimit = %d, want 1", got.DepthLimit)
	}
	if got.UserAgent != "custom-agent" {
		t.Errorf("UserAgent = %q, want custom-agent", got.UserAgent)
	}
}

func TestResolveSiteOptions_PartialOverrideKeepsRemainingDefaults(t *testing.T) {
	job := model.Job{
		TargetURL: "https://example.com",
		Options:   &model.JobOptions{MaxPages: 5},
	}
	defaults := Options{DefaultMaxPages: 50, DefaultSiteDepth: 3, UserAgent: "seoscan-bot"}

	got := resolveSiteOptions(job, defaults)

	if got.MaxPages != 5 {
		t.Errorf("MaxPages = %d, want 5", got.MaxPages)
	}
	if got.DepthLimit != 3 {
		t.Errorf("DepthLimit = %d, want default 3", got.DepthLimit)
	}
	if got.UserAgent != "seoscan-bot" {
		t.Errorf("UserAgent = %q, want default", got.UserAgent)
	}
}

type fakeCancelChecker struct {
	cancelled map[uuid.UUID]bool
}

func (f *fakeCancelChecker) IsCancelRequested(jobID uuid.UUID) bool {
	return f.cancelled[jobID]
}

func TestFakeCancelChecker_SatisfiesInterface(t *testing.T) {
	var c CancelChecker = &fakeCancelChecker{cancelled: map[uuid.UUID]bool{}}
	id := uuid.New()
	if c.IsCancelRequested(id) {
		t.Error("expected unrequested job to report false")
	}
}
