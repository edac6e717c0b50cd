// Package query implements the read paths over jobs and pages: list
// and detail lookups with filters, sorting, and pagination, composed
// for the thin REST adapter.
package query

import (
	"context"

	"github.com/google/uuid"

	"seoscan/internal/model"
	"seoscan/internal/store"
)

// Pagination is the envelope returned alongside every list result.
type Pagination struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// JobsPage is the result of ListJobs.
type JobsPage struct {
	Jobs       []model.Job `json:"jobs"`
	Pagination Pagination  `json:"pagination"`
}

// PagesPage is the result of ListPagesForJob.
type PagesPage struct {
	Pages      []model.Page `json:"pages"`
	Pagination Pagination   `json:"pagination"`
}

// PageDetail is one page plus its child metric rows, the composite
// record getPageForJob returns.
type PageDetail struct {
	Page     model.Page            `json:"page"`
	SEO      *model.SeoMetrics     `json:"seo,omitempty"`
	Link     *model.LinkMetrics    `json:"link,omitempty"`
	Tracking []model.TrackingEvent `json:"tracking"`
}

// Service implements the read paths backing the REST adapter's list
// and detail endpoints.
type Service struct {
	store *store.Store
}

// New builds a Service.
func New(st *store.Store) *Service {
	return &Service{store: st}
}

// JobFilter mirrors spec.md §6's GET /api/scans query parameters.
type JobFilter struct {
	Status    model.JobStatus
	Mode      model.JobMode
	Search    string
	SortBy    string
	Direction string
	Limit     int
	Offset    int
}

// ListJobs returns jobs matching filter along with a pagination
// envelope. Limit defaults to 20 and is clamped to [1,100]; Offset
// defaults to 0.
func (s *Service) ListJobs(ctx context.Context, filter JobFilter) (JobsPage, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset, 20, 100)

	storeFilter := store.JobListFilter{
		Status:    filter.Status,
		Mode:      filter.Mode,
		Search:    filter.Search,
		SortBy:    filter.SortBy,
		Direction: filter.Direction,
		Limit:     limit,
		Offset:    offset,
	}

	jobs, err := s.store.ListJobs(ctx, storeFilter)
	if err != nil {
		return JobsPage{}, err
	}
	total, err := s.store.CountJobs(ctx, storeFilter)
	if err != nil {
		return JobsPage{}, err
	}

	return JobsPage{
		Jobs:       jobs,
		Pagination: Pagination{Total: total, Limit: limit, Offset: offset},
	}, nil
}

// GetJob returns one job by id. Returns store.ErrNotFound if it does
// not exist.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (model.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// PageFilter mirrors spec.md §6's GET /api/scans/:id/pages query
// parameters.
type PageFilter struct {
	Status    model.PageStatus
	Search    string
	SortBy    string
	Direction string
	Limit     int
	Offset    int
}

// ListPagesForJob implements listPagesForJob(jobId, {...}): joins Page
// with SeoMetrics for sort=seoScore, returns a pagination envelope.
func (s *Service) ListPagesForJob(ctx context.Context, jobID uuid.UUID, filter PageFilter) (PagesPage, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset, 20, 100)

	storeFilter := store.PageListFilter{
		JobID:     jobID,
		Status:    filter.Status,
		Search:    filter.Search,
		SortBy:    filter.SortBy,
		Direction: filter.Direction,
		Limit:     limit,
		Offset:    offset,
	}

	pages, err := s.store.ListPagesForJob(ctx, storeFilter)
	if err != nil {
		return PagesPage{}, err
	}
	total, err := s.store.CountPagesForJob(ctx, storeFilter)
	if err != nil {
		return PagesPage{}, err
	}

	return PagesPage{
		Pages:      pages,
		Pagination: Pagination{Total: total, Limit: limit, Offset: offset},
	}, nil
}

// GetPageForJob returns the composite record for one page: the Page
// row plus its SeoMetrics/LinkMetrics (when present) and every
// TrackingEvent recorded for it.
func (s *Service) GetPageForJob(ctx context.Context, pageID uuid.UUID) (PageDetail, error) {
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return PageDetail{}, err
	}

	detail := PageDetail{Page: page}

	if page.Status == model.PageCompleted {
		if seo, err := s.store.GetSeoMetrics(ctx, pageID); err == nil {
			detail.SEO = &seo
		}
		if link, err := s.store.GetLinkMetrics(ctx, pageID); err == nil {
			detail.Link = &link
		}
	}

	events, err := s.store.ListTrackingEvents(ctx, pageID)
	if err != nil {
		return PageDetail{}, err
	}
	detail.Tracking = events

	return detail, nil
}

func normalizePage(limit, offset, defaultLimit, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
