package httpapi

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"seoscan/internal/model"
	"seoscan/internal/query"
	"seoscan/internal/scheduler"
	"seoscan/internal/store"
)

func localStore(c *fiber.Ctx) *store.Store {
	return c.Locals("store").(*store.Store)
}

func localScheduler(c *fiber.Ctx) *scheduler.Scheduler {
	return c.Locals("scheduler").(*scheduler.Scheduler)
}

func localQuery(c *fiber.Ctx) *query.Service {
	return c.Locals("query").(*query.Service)
}

// createScanHandler implements POST /api/scans.
func createScanHandler(c *fiber.Ctx) error {
	var req CreateScanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResponse("BAD_REQUEST", "invalid request body"))
	}

	if err := validateCreateScanRequest(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResponse("BAD_REQUEST", err.Error()))
	}

	opts := &model.JobOptions{}
	if req.Options != nil {
		opts.SiteDepth = req.Options.SiteDepth
		opts.MaxPages = req.Options.MaxPages
		opts.UserAgent = req.Options.UserAgent
		opts.RequestTimeoutMs = req.Options.RequestTimeoutMs
	}

	jobID := uuid.New()
	job, err := localStore(c).CreateJob(c.Context(), jobID, req.TargetURL, model.JobMode(req.Mode), opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errResponse("JOB_CREATE_FAILED", err.Error()))
	}

	sched := localScheduler(c)
	sched.EmitQueued(c.Context(), jobID, job.TargetURL, job.Mode)
	sched.Enqueue(jobID)

	return c.Status(fiber.StatusCreated).JSON(job)
}

func validateCreateScanRequest(req CreateScanRequest) error {
	if req.TargetURL == "" {
		return errors.New("targetUrl is required")
	}
	parsed, err := url.Parse(req.TargetURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("targetUrl must be an absolute URL")
	}

	switch model.JobMode(req.Mode) {
	case model.ModeSingle, model.ModeSite:
	default:
		return errors.New("mode must be single or site")
	}

	if req.Options == nil {
		return nil
	}
	if req.Options.SiteDepth != 0 && (req.Options.SiteDepth < 1 || req.Options.SiteDepth > 10) {
		return errors.New("options.siteDepth must be between 1 and 10")
	}
	if req.Options.MaxPages != 0 && (req.Options.MaxPages < 1 || req.Options.MaxPages > 1000) {
		return errors.New("options.maxPages must be between 1 and 1000")
	}
	if req.Options.RequestTimeoutMs != 0 && (req.Options.RequestTimeoutMs < 1000 || req.Options.RequestTimeoutMs > 120000) {
		return errors.New("options.requestTimeoutMs must be between 1000 and 120000")
	}
	return nil
}

// listScansHandler implements GET /api/scans.
func listScansHandler(c *fiber.Ctx) error {
	filter := query.JobFilter{
		Status:    model.JobStatus(c.Query("status")),
		Mode:      model.JobMode(c.Query("mode")),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort"),
		Direction: c.Query("direction"),
		Limit:     queryInt(c, "limit", 20),
		Offset:    queryInt(c, "offset", 0),
	}

	page, err := localQuery(c).ListJobs(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errResponse("JOB_LIST_FAILED", err.Error()))
	}
	return c.Status(fiber.StatusOK).JSON(page)
}

// getScanHandler implements GET /api/scans/:id.
func getScanHandler(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResponse("BAD_REQUEST", "invalid job id"))
	}

	job, err := localQuery(c).GetJob(c.Context(), jobID)
	if err != nil {
		return jobErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(job)
}

// deleteScanHandler implements DELETE /api/scans/:id.
func deleteScanHandler(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResponse("BAD_REQUEST", "invalid job id"))
	}

	if err := localStore(c).DeleteJob(c.Context(), jobID); err != nil {
		return jobErrorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// cancelScanHandler implements POST /api/scans/:id/cancel.
func cancelScanHandler(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResponse("BAD_REQUEST", "invalid job id"))
	}

	if err := localScheduler(c).Cancel(jobID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(errResponse("CONFLICT", "job is not running or pending"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(errResponse("CANCEL_FAILED", err.Error()))
	}

	return c.Status(fiber.StatusOK).JSON(ActionResponse{Success: true, Message: "cancellation requested"})
}

// retryScanHandler implements POST /api/scans/:id/retry.
func retryScanHandler(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResponse("BAD_REQUEST", "invalid job id"))
	}

	st := localStore(c)
	if err := st.RetryJob(c.Context(), jobID); err != nil {
		return jobErrorResponse(c, err)
	}

	job, err := st.GetJob(c.Context(), jobID)
	if err != nil {
		return jobErrorResponse(c, err)
	}

	sched := localScheduler(c)
	sched.EmitQueued(c.Context(), jobID, job.TargetURL, job.Mode)
	sched.Enqueue(jobID)

	return c.Status(fiber.StatusOK).JSON(ActionResponse{Success: true, Message: "job requeued"})
}

// listPagesHandler implements GET /api/scans/:id/pages.
func listPagesHandler(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResponse("BAD_REQUEST", "invalid job id"))
	}

	filter := query.PageFilter{
		Status:    model.PageStatus(c.Query("status")),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort"),
		Direction: c.Query("direction"),
		Limit:     queryInt(c, "limit", 20),
		Offset:    queryInt(c, "offset", 0),
	}

	page, err := localQuery(c).ListPagesForJob(c.Context(), jobID, filter)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(errResponse("NOT_FOUND", "job not found"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(errResponse("PAGE_LIST_FAILED", err.Error()))
	}
	return c.Status(fiber.StatusOK).JSON(page)
}

// getPageHandler implements GET /api/scans/:id/pages/:pageId.
func getPageHandler(c *fiber.Ctx) error {
	pageID, err := uuid.Parse(c.Params("pageId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResponse("BAD_REQUEST", "invalid page id"))
	}

	detail, err := localQuery(c).GetPageForJob(c.Context(), pageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(errResponse("NOT_FOUND", "page not found"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(errResponse("PAGE_LOOKUP_FAILED", err.Error()))
	}
	return c.Status(fiber.StatusOK).JSON(detail)
}

// queueStateHandler implements GET /api/scans/queue/state.
func queueStateHandler(c *fiber.Ctx) error {
	state := localScheduler(c).GetState()
	return c.Status(fiber.StatusOK).JSON(QueueStateResponse{
		Queue:           uuidsToStrings(state.Queue),
		Running:         uuidsToStrings(state.Running),
		CancelRequested: uuidsToStrings(state.CancelRequested),
	})
}

func jobErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errResponse("NOT_FOUND", "job not found"))
	case errors.Is(err, store.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(errResponse("CONFLICT", "job is not in a state that allows this operation"))
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(errResponse("INTERNAL_ERROR", err.Error()))
	}
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
