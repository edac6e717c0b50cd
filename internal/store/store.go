// Package store adapts the scan engine's domain model to Postgres,
// translating between internal/model types and the row types in
// internal/db, and grouping multi-row writes into transactions.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sqlc-dev/pqtype"

	"seoscan/internal/db"
	"seoscan/internal/model"
)

// ErrNotFound is returned when a Job or Page lookup finds no matching
// row. Checked with errors.Is.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a write conflicts with a row's current
// state, e.g. cancelling a job that has already reached a terminal
// status.
var ErrConflict = errors.New("store: conflict")

// Store wraps access to the database via hand-written Queries.
type Store struct {
	DB *sql.DB
}

func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

func (s *Store) queries() *db.Queries {
	return db.New(s.DB)
}

func rawMessage(v any) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: b, Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt32(p *int) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*p), Valid: true}
}

// CreateJob inserts a new pending job row for the given target URL and
// mode, along with its JobOptions.
func (s *Store) CreateJob(ctx context.Context, id uuid.UUID, targetURL string, mode model.JobMode, opts *model.JobOptions) (model.Job, error) {
	optsJSON, err := rawMessage(opts)
	if err != nil {
		return model.Job{}, err
	}

	row, err := s.queries().InsertJob(ctx, db.InsertJobParams{
		ID:        id,
		TargetURL: targetURL,
		Mode:      string(mode),
		Options:   optsJSON,
	})
	if err != nil {
		return model.Job{}, err
	}
	return jobFromRow(row)
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (model.Job, error) {
	row, err := s.queries().GetJobByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Job{}, ErrNotFound
		}
		return model.Job{}, err
	}
	return jobFromRow(row)
}

// MarkJobRunning transitions a job from pending to running.
func (s *Store) MarkJobRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return s.queries().UpdateJobRunning(ctx, id, startedAt)
}

// MarkJobTerminal transitions a job to completed or failed (a cancelled
// job is stored as failed),
// recording the final issue-summary rollup (if any) and error message.
func (s *Store) MarkJobTerminal(ctx context.Context, id uuid.UUID, status model.JobStatus, completedAt time.Time, summary *model.Aggregated, errMsg string) error {
	summaryJSON, err := rawMessage(summary)
	if err != nil {
		return err
	}
	return s.queries().UpdateJobTerminal(ctx, db.UpdateJobTerminalParams{
		ID:            id,
		Status:        string(status),
		CompletedAt:   completedAt,
		IssuesSummary: summaryJSON,
		Error:         nullString(errMsg),
	})
}

func (s *Store) IncrementJobPagesFinished(ctx context.Context, id uuid.UUID) error {
	return s.queries().IncrementJobPagesFinished(ctx, id)
}

func (s *Store) SetJobPagesTotal(ctx context.Context, id uuid.UUID, total int) error {
	return s.queries().SetJobPagesTotal(ctx, id, int32(total))
}

// JobListFilter describes optional filters/sort/pagination for
// listing jobs.
type JobListFilter struct {
	Status    model.JobStatus
	Mode      model.JobMode
	Search    string
	SortBy    string
	Direction string
	Limit     int
	Offset    int
}

func (f JobListFilter) toDB() db.ListJobsFilter {
	return db.ListJobsFilter{
		Status:    string(f.Status),
		Mode:      string(f.Mode),
		Search:    f.Search,
		SortBy:    f.SortBy,
		Direction: f.Direction,
		Limit:     int32(f.Limit),
		Offset:    int32(f.Offset),
	}
}

func (s *Store) ListJobs(ctx context.Context, filter JobListFilter) ([]model.Job, error) {
	rows, err := s.queries().ListJobs(ctx, filter.toDB())
	if err != nil {
		return nil, err
	}
	return jobsFromRows(rows)
}

// CountJobs returns the total number of jobs matching filter, ignoring
// its Limit/Offset, for the query service's pagination envelope.
func (s *Store) CountJobs(ctx context.Context, filter JobListFilter) (int64, error) {
	return s.queries().CountJobs(ctx, filter.toDB())
}

// ListPendingJobs returns jobs the scheduler has not yet picked up.
func (s *Store) ListPendingJobs(ctx context.Context, limit int) ([]model.Job, error) {
	rows, err := s.queries().ListPendingJobs(ctx, int32(limit))
	if err != nil {
		return nil, err
	}
	return jobsFromRows(rows)
}

// ListRunningJobs returns jobs left in 'running' status, used to
// recover from a crash by requeuing them.
func (s *Store) ListRunningJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := s.queries().ListRunningJobs(ctx)
	if err != nil {
		return nil, err
	}
	return jobsFromRows(rows)
}

func (s *Store) DeleteExpiredJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.queries().DeleteExpiredJobs(ctx, cutoff)
}

// DeleteJob removes a job row, but only once it has reached a terminal
// status. Returns ErrNotFound if no job with id exists at all, or
// ErrConflict if it exists but is still pending or running.
func (s *Store) DeleteJob(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.queries().DeleteJobIfTerminal(ctx, id)
	if err != nil {
		return err
	}
	if deleted {
		return nil
	}

	if _, err := s.GetJob(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

// RetryJob rewinds a failed job to pending so the Scheduler can
// re-enqueue it. Returns ErrNotFound if id doesn't exist, ErrConflict
// if it exists but isn't failed.
func (s *Store) RetryJob(ctx context.Context, id uuid.UUID) error {
	reset, err := s.queries().ResetJobForRetry(ctx, id)
	if err != nil {
		return err
	}
	if reset {
		return nil
	}

	if _, err := s.GetJob(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

// CreatePage inserts a new pending page row belonging to a job.
func (s *Store) CreatePage(ctx context.Context, id, jobID uuid.UUID, url, deviceVariant string) (model.Page, error) {
	row, err := s.queries().InsertPage(ctx, db.InsertPageParams{
		ID:            id,
		JobID:         jobID,
		URL:           url,
		DeviceVariant: nullString(deviceVariant),
	})
	if err != nil {
		return model.Page{}, err
	}
	return pageFromRow(row), nil
}

// PageResult is the complete outcome of analyzing one page, written
// atomically across scan_pages, seo_metrics, link_metrics, and
// tracking_events in a single transaction.
type PageResult struct {
	PageID        uuid.UUID
	Status        model.PageStatus
	HTTPStatus    *int
	LoadTimeMs    *int
	IssueCounts   *model.IssueSummary
	SEO           *model.SeoMetrics
	Link          *model.LinkMetrics
	TrackingEvent []model.TrackingEvent
}

// SavePageResult persists a completed page analysis. The page row and
// its child metric rows are written in one transaction so a partial
// failure never leaves a page marked completed without its metrics, or
// metrics rows orphaned from their page.
func (s *Store) SavePageResult(ctx context.Context, r PageResult) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := db.New(tx)

	issueJSON, err := rawMessage(r.IssueCounts)
	if err != nil {
		return err
	}

	if err := q.UpdatePageResult(ctx, db.UpdatePageResultParams{
		ID:          r.PageID,
		Status:      string(r.Status),
		HTTPStatus:  nullInt32(r.HTTPStatus),
		LoadTimeMs:  nullInt32(r.LoadTimeMs),
		IssueCounts: issueJSON,
	}); err != nil {
		return err
	}

	if r.SEO != nil {
		seoRow, err := seoRowFromModel(r.PageID, r.SEO)
		if err != nil {
			return err
		}
		if err := q.InsertSeoMetrics(ctx, seoRow); err != nil {
			return err
		}
	}

	if r.Link != nil {
		linkRow, err := linkRowFromModel(r.PageID, r.Link)
		if err != nil {
			return err
		}
		if err := q.InsertLinkMetrics(ctx, linkRow); err != nil {
			return err
		}
	}

	for _, ev := range r.TrackingEvent {
		row, err := trackingRowFromModel(r.PageID, ev)
		if err != nil {
			return err
		}
		if err := q.InsertTrackingEvent(ctx, row); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FailPage marks a page as failed without any child metric rows. Kept
// separate from SavePageResult so a fetch/analyze failure never has to
// construct placeholder metric rows.
func (s *Store) FailPage(ctx context.Context, pageID uuid.UUID, httpStatus *int, issueSummary *model.IssueSummary) error {
	issueJSON, err := rawMessage(issueSummary)
	if err != nil {
		return err
	}
	return s.queries().UpdatePageResult(ctx, db.UpdatePageResultParams{
		ID:          pageID,
		Status:      string(model.PageFailed),
		HTTPStatus:  nullInt32(httpStatus),
		IssueCounts: issueJSON,
	})
}

func (s *Store) GetPage(ctx context.Context, id uuid.UUID) (model.Page, error) {
	row, err := s.queries().GetPageByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Page{}, ErrNotFound
		}
		return model.Page{}, err
	}
	return pageFromRow(row), nil
}

// PageListFilter describes optional filters/sort/pagination for the
// query service's page listing.
type PageListFilter struct {
	JobID     uuid.UUID
	Status    model.PageStatus
	Search    string
	SortBy    string
	Direction string
	SortDesc  bool
	Limit     int
	Offset    int
}

func (f PageListFilter) toDB() db.ListPagesFilter {
	return db.ListPagesFilter{
		JobID:     f.JobID,
		Status:    string(f.Status),
		Search:    f.Search,
		SortBy:    f.SortBy,
		Direction: f.Direction,
		SortDesc:  f.SortDesc,
		Limit:     int32(f.Limit),
		Offset:    int32(f.Offset),
	}
}

func (s *Store) ListPagesForJob(ctx context.Context, filter PageListFilter) ([]model.Page, error) {
	rows, err := s.queries().ListPagesForJob(ctx, filter.toDB())
	if err != nil {
		return nil, err
	}
	pages := make([]model.Page, 0, len(rows))
	for _, row := range rows {
		pages = append(pages, pageFromRow(row))
	}
	return pages, nil
}

// CountPagesForJob returns the total number of pages matching filter,
// ignoring its Limit/Offset, for the query service's pagination
// envelope.
func (s *Store) CountPagesForJob(ctx context.Context, filter PageListFilter) (int64, error) {
	return s.queries().CountPagesForJob(ctx, filter.toDB())
}

func (s *Store) GetSeoMetrics(ctx context.Context, pageID uuid.UUID) (model.SeoMetrics, error) {
	row, err := s.queries().GetSeoMetricsByPageID(ctx, pageID)
	if err != nil {
		return model.SeoMetrics{}, err
	}
	return seoModelFromRow(row)
}

func (s *Store) GetLinkMetrics(ctx context.Context, pageID uuid.UUID) (model.LinkMetrics, error) {
	row, err := s.queries().GetLinkMetricsByPageID(ctx, pageID)
	if err != nil {
		return model.LinkMetrics{}, err
	}
	return linkModelFromRow(row)
}

func (s *Store) ListTrackingEvents(ctx context.Context, pageID uuid.UUID) ([]model.TrackingEvent, error) {
	rows, err := s.queries().ListTrackingEventsByPageID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	events := make([]model.TrackingEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := trackingModelFromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// AppendTaskEvent writes a new row to the append-only task-event log.
func (s *Store) AppendTaskEvent(ctx context.Context, jobID uuid.UUID, eventType model.TaskEventType, payload map[string]any) (model.TaskEvent, error) {
	payloadJSON, err := rawMessage(payload)
	if err != nil {
		return model.TaskEvent{}, err
	}
	row, err := s.queries().InsertTaskEvent(ctx, jobID, string(eventType), payloadJSON)
	if err != nil {
		return model.TaskEvent{}, err
	}
	return taskEventFromRow(row)
}

// ListTaskEventsSince returns task events for replay to a newly
// connected SSE subscriber, starting just after afterID (0 for all).
func (s *Store) ListTaskEventsSince(ctx context.Context, jobID uuid.UUID, afterID int64) ([]model.TaskEvent, error) {
	rows, err := s.queries().ListTaskEventsSince(ctx, jobID, afterID)
	if err != nil {
		return nil, err
	}
	events := make([]model.TaskEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := taskEventFromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func jobFromRow(row db.Job) (model.Job, error) {
	j := model.Job{
		ID:            row.ID.String(),
		TargetURL:     row.TargetURL,
		Mode:          model.JobMode(row.Mode),
		Status:        model.JobStatus(row.Status),
		PagesTotal:    int(row.PagesTotal),
		PagesFinished: int(row.PagesFinished),
		CreatedAt:     row.CreatedAt,
	}
	if row.StartedAt.Valid {
		t := row.StartedAt.Time
		j.StartedAt = &t
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		j.CompletedAt = &t
	}
	if row.Error.Valid {
		j.Error = row.Error.String
	}
	if row.Options.Valid {
		var opts model.JobOptions
		if err := json.Unmarshal(row.Options.RawMessage, &opts); err != nil {
			return model.Job{}, err
		}
		j.Options = &opts
	}
	if row.IssuesSummary.Valid {
		var agg model.Aggregated
		if err := json.Unmarshal(row.IssuesSummary.RawMessage, &agg); err != nil {
			return model.Job{}, err
		}
		j.IssuesSummary = &agg
	}
	return j, nil
}

func jobsFromRows(rows []db.Job) ([]model.Job, error) {
	jobs := make([]model.Job, 0, len(rows))
	for _, row := range rows {
		j, err := jobFromRow(row)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func pageFromRow(row db.Page) model.Page {
	p := model.Page{
		ID:        row.ID.String(),
		JobID:     row.JobID.String(),
		URL:       row.URL,
		Status:    model.PageStatus(row.Status),
		CreatedAt: row.CreatedAt,
	}
	if row.HTTPStatus.Valid {
		v := int(row.HTTPStatus.Int32)
		p.HTTPStatus = &v
	}
	if row.LoadTimeMs.Valid {
		v := int(row.LoadTimeMs.Int32)
		p.LoadTimeMs = &v
	}
	if row.DeviceVariant.Valid {
		p.DeviceVariant = row.DeviceVariant.String
	}
	if row.IssueCounts.Valid {
		var is model.IssueSummary
		if json.Unmarshal(row.IssueCounts.RawMessage, &is) == nil {
			p.IssueCounts = &is
		}
	}
	return p
}

func seoRowFromModel(pageID uuid.UUID, m *model.SeoMetrics) (db.SeoMetrics, error) {
	schemaJSON, err := rawMessage(m.SchemaOrg)
	if err != nil {
		return db.SeoMetrics{}, err
	}
	typesJSON, err := rawMessage(m.JSONLDTypes)
	if err != nil {
		return db.SeoMetrics{}, err
	}
	jsonLDIssuesJSON, err := rawMessage(m.JSONLDIssues)
	if err != nil {
		return db.SeoMetrics{}, err
	}
	htmlIssuesJSON, err := rawMessage(m.HTMLStructureIssues)
	if err != nil {
		return db.SeoMetrics{}, err
	}
	return db.SeoMetrics{
		ID:                  uuid.New(),
		PageID:              pageID,
		Title:               nullString(m.Title),
		MetaDescription:     nullString(m.MetaDescription),
		Canonical:           nullString(m.Canonical),
		H1:                  nullString(m.H1),
		RobotsTxtBlocked:    m.RobotsNoindex,
		SchemaOrg:           schemaJSON,
		Score:               int32(m.Score),
		JSONLDScore:         m.JSONLDScore,
		JSONLDTypes:         typesJSON,
		JSONLDIssues:        jsonLDIssuesJSON,
		HTMLStructureScore:  m.HTMLStructureScore,
		HTMLStructureIssues: htmlIssuesJSON,
	}, nil
}

func seoModelFromRow(row db.SeoMetrics) (model.SeoMetrics, error) {
	m := model.SeoMetrics{
		PageID:             row.PageID.String(),
		Title:              row.Title.String,
		MetaDescription:    row.MetaDescription.String,
		Canonical:          row.Canonical.String,
		H1:                 row.H1.String,
		RobotsNoindex:      row.RobotsTxtBlocked,
		Score:              int(row.Score),
		JSONLDScore:        row.JSONLDScore,
		HTMLStructureScore: row.HTMLStructureScore,
	}
	if row.SchemaOrg.Valid {
		var v any
		if err := json.Unmarshal(row.SchemaOrg.RawMessage, &v); err != nil {
			return model.SeoMetrics{}, err
		}
		m.SchemaOrg = v
	}
	if row.JSONLDTypes.Valid {
		if err := json.Unmarshal(row.JSONLDTypes.RawMessage, &m.JSONLDTypes); err != nil {
			return model.SeoMetrics{}, err
		}
	}
	if row.JSONLDIssues.Valid {
		if err := json.Unmarshal(row.JSONLDIssues.RawMessage, &m.JSONLDIssues); err != nil {
			return model.SeoMetrics{}, err
		}
	}
	if row.HTMLStructureIssues.Valid {
		if err := json.Unmarshal(row.HTMLStructureIssues.RawMessage, &m.HTMLStructureIssues); err != nil {
			return model.SeoMetrics{}, err
		}
	}
	return m, nil
}

func linkRowFromModel(pageID uuid.UUID, m *model.LinkMetrics) (db.LinkMetrics, error) {
	utmJSON, err := rawMessage(m.UTMParams)
	if err != nil {
		return db.LinkMetrics{}, err
	}
	return db.LinkMetrics{
		ID:            uuid.New(),
		PageID:        pageID,
		InternalLinks: int32(m.InternalLinks),
		ExternalLinks: int32(m.ExternalLinks),
		UTMParams:     utmJSON,
		BrokenLinks:   int32(m.BrokenLinks),
		Redirects:     int32(m.Redirects),
	}, nil
}

func linkModelFromRow(row db.LinkMetrics) (model.LinkMetrics, error) {
	m := model.LinkMetrics{
		PageID:        row.PageID.String(),
		InternalLinks: int(row.InternalLinks),
		ExternalLinks: int(row.ExternalLinks),
		BrokenLinks:   int(row.BrokenLinks),
		Redirects:     int(row.Redirects),
	}
	if row.UTMParams.Valid {
		var u model.UTMSummary
		if err := json.Unmarshal(row.UTMParams.RawMessage, &u); err != nil {
			return model.LinkMetrics{}, err
		}
		m.UTMParams = &u
	}
	return m, nil
}

func trackingRowFromModel(pageID uuid.UUID, ev model.TrackingEvent) (db.TrackingEvent, error) {
	payloadJSON, err := rawMessage(ev.Payload)
	if err != nil {
		return db.TrackingEvent{}, err
	}
	id := ev.ID
	if id == "" {
		id = uuid.New().String()
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		parsedID = uuid.New()
	}
	return db.TrackingEvent{
		ID:            parsedID,
		PageID:        pageID,
		Element:       nullString(ev.Element),
		Trigger:       nullString(ev.Trigger),
		EventName:     nullString(ev.EventName),
		Platform:      string(ev.Platform),
		DeviceVariant: nullString(ev.DeviceVariant),
		Payload:       payloadJSON,
		Status:        string(ev.Status),
	}, nil
}

func trackingModelFromRow(row db.TrackingEvent) (model.TrackingEvent, error) {
	ev := model.TrackingEvent{
		ID:            row.ID.String(),
		PageID:        row.PageID.String(),
		Element:       row.Element.String,
		Trigger:       row.Trigger.String,
		Platform:      model.TrackingPlatform(row.Platform),
		Status:        model.TrackingStatus(row.Status),
		EventName:     row.EventName.String,
		DeviceVariant: row.DeviceVariant.String,
	}
	if row.Payload.Valid {
		if err := json.Unmarshal(row.Payload.RawMessage, &ev.Payload); err != nil {
			return model.TrackingEvent{}, err
		}
	}
	return ev, nil
}

func taskEventFromRow(row db.TaskEvent) (model.TaskEvent, error) {
	ev := model.TaskEvent{
		ID:        row.ID,
		JobID:     row.JobID.String(),
		Type:      model.TaskEventType(row.Type),
		CreatedAt: row.CreatedAt,
	}
	if row.Payload.Valid {
		if err := json.Unmarshal(row.Payload.RawMessage, &ev.Payload); err != nil {
			return model.TaskEvent{}, err
		}
	}
	return ev, nil
}
