// Package db holds the row types and hand-written queries the store
// package uses to talk to Postgres. There is no sqlc toolchain wired
// into this repo, so these rows and query methods are written by hand
// in the same shape sqlc would have generated: plain structs plus a
// Queries type wrapping a *sql.DB/*sql.Tx via the DBTX interface.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, letting Queries run
// inside or outside an explicit transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries wraps a DBTX with the scan engine's hand-written SQL.
type Queries struct {
	db DBTX
}

func New(dbtx DBTX) *Queries {
	return &Queries{db: dbtx}
}

// WithTx returns a copy of Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Job mirrors the scan_jobs row.
type Job struct {
	ID            uuid.UUID
	TargetURL     string
	Mode          string
	Status        string
	PagesTotal    int32
	PagesFinished int32
	IssuesSummary pqtype.NullRawMessage
	Options       pqtype.NullRawMessage
	CreatedAt     time.Time
	StartedAt     sql.NullTime
	CompletedAt   sql.NullTime
	Error         sql.NullString
}

// Page mirrors the scan_pages row.
type Page struct {
	ID            uuid.UUID
	JobID         uuid.UUID
	URL           string
	Status        string
	HTTPStatus    sql.NullInt32
	LoadTimeMs    sql.NullInt32
	IssueCounts   pqtype.NullRawMessage
	DeviceVariant sql.NullString
	CreatedAt     time.Time
}

// SeoMetrics mirrors the seo_metrics row.
type SeoMetrics struct {
	ID                  uuid.UUID
	PageID              uuid.UUID
	Title               sql.NullString
	MetaDescription     sql.NullString
	Canonical           sql.NullString
	H1                  sql.NullString
	RobotsTxtBlocked    bool
	SchemaOrg           pqtype.NullRawMessage
	Score               int32
	JSONLDScore         float64
	JSONLDTypes         pqtype.NullRawMessage
	JSONLDIssues        pqtype.NullRawMessage
	HTMLStructureScore  float64
	HTMLStructureIssues pqtype.NullRawMessage
}

// LinkMetrics mirrors the link_metrics row.
type LinkMetrics struct {
	ID            uuid.UUID
	PageID        uuid.UUID
	InternalLinks int32
	ExternalLinks int32
	UTMParams     pqtype.NullRawMessage
	BrokenLinks   int32
	Redirects     int32
}

// TrackingEvent mirrors the tracking_events row.
type TrackingEvent struct {
	ID            uuid.UUID
	PageID        uuid.UUID
	Element       sql.NullString
	Trigger       sql.NullString
	EventName     sql.NullString
	Platform      string
	DeviceVariant sql.NullString
	Payload       pqtype.NullRawMessage
	Status        string
}

// TaskEvent mirrors the task_events row.
type TaskEvent struct {
	ID        int64
	JobID     uuid.UUID
	Type      string
	Payload   pqtype.NullRawMessage
	CreatedAt time.Time
}

// InsertJobParams groups the fields needed to create a scan_jobs row.
type InsertJobParams struct {
	ID         uuid.UUID
	TargetURL  string
	Mode       string
	PagesTotal int32
	Options    pqtype.NullRawMessage
}

func (q *Queries) InsertJob(ctx context.Context, arg InsertJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO scan_jobs (id, target_url, mode, status, pages_total, pages_finished, options)
		VALUES ($1, $2, $3, 'pending', $4, 0, $5)
		RETURNING id, target_url, mode, status, pages_total, pages_finished, issues_summary, options, created_at, started_at, completed_at, error
	`, arg.ID, arg.TargetURL, arg.Mode, arg.PagesTotal, arg.Options)
	return scanJob(row)
}

func (q *Queries) GetJobByID(ctx context.Context, id uuid.UUID) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, target_url, mode, status, pages_total, pages_finished, issues_summary, options, created_at, started_at, completed_at, error
		FROM scan_jobs WHERE id = $1
	`, id)
	return scanJob(row)
}

// UpdateJobRunning marks a job as running.
func (q *Queries) UpdateJobRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scan_jobs SET status = 'running', started_at = $2 WHERE id = $1
	`, id, startedAt)
	return err
}

// UpdateJobTerminalParams groups the fields written when a job
// transitions to a terminal state.
type UpdateJobTerminalParams struct {
	ID            uuid.UUID
	Status        string
	CompletedAt   time.Time
	IssuesSummary pqtype.NullRawMessage
	Error         sql.NullString
}

func (q *Queries) UpdateJobTerminal(ctx context.Context, arg UpdateJobTerminalParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scan_jobs SET status = $2, completed_at = $3, issues_summary = $4, error = $5 WHERE id = $1
	`, arg.ID, arg.Status, arg.CompletedAt, arg.IssuesSummary, arg.Error)
	return err
}

func (q *Queries) IncrementJobPagesFinished(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scan_jobs SET pages_finished = pages_finished + 1 WHERE id = $1
	`, id)
	return err
}

func (q *Queries) SetJobPagesTotal(ctx context.Context, id uuid.UUID, total int32) error {
	_, err := q.db.ExecContext(ctx, `UPDATE scan_jobs SET pages_total = $2 WHERE id = $1`, id, total)
	return err
}

// ResetJobForRetry rewinds a failed job back to pending, clearing the
// fields a fresh run will repopulate. Only rows currently 'failed' are
// affected; the returned bool reports whether one was.
func (q *Queries) ResetJobForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE scan_jobs
		SET status = 'pending', pages_total = 0, pages_finished = 0,
		    issues_summary = NULL, started_at = NULL, completed_at = NULL, error = NULL
		WHERE id = $1 AND status = 'failed'
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListJobsFilter describes the optional filters/sort/pagination list
// queries accept.
type ListJobsFilter struct {
	Status    string
	Mode      string
	Search    string
	SortBy    string
	Direction string
	Limit     int32
	Offset    int32
}

var jobSortColumns = map[string]string{
	"createdAt":     "created_at",
	"startedAt":     "started_at",
	"completedAt":   "completed_at",
	"pagesTotal":    "pages_total",
	"pagesFinished": "pages_finished",
}

func jobOrderClause(filter ListJobsFilter) string {
	column, ok := jobSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.Direction == "asc" {
		direction = "ASC"
	}
	return " ORDER BY " + column + " " + direction
}

func buildJobConditions(filter ListJobsFilter, pos int) ([]string, []any, int) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, sqlCond("status", pos))
		args = append(args, filter.Status)
		pos++
	}
	if filter.Mode != "" {
		conditions = append(conditions, sqlCond("mode", pos))
		args = append(args, filter.Mode)
		pos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(" AND target_url ILIKE $%d", pos))
		args = append(args, "%"+filter.Search+"%")
		pos++
	}
	return conditions, args, pos
}

func (q *Queries) ListJobs(ctx context.Context, filter ListJobsFilter) ([]Job, error) {
	query := `SELECT id, target_url, mode, status, pages_total, pages_finished, issues_summary, options, created_at, started_at, completed_at, error FROM scan_jobs`

	conditions, args, pos := buildJobConditions(filter, 1)
	if len(conditions) > 0 {
		query += " WHERE " + joinAnd(conditions)
	}
	query += jobOrderClause(filter)

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query += sqlLimit(pos)
	args = append(args, limit)
	pos++

	if filter.Offset > 0 {
		query += sqlOffset(pos)
		args = append(args, filter.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// CountJobs returns the total row count matching filter's status/mode/
// search conditions, ignoring pagination, for the query service's
// pagination envelope.
func (q *Queries) CountJobs(ctx context.Context, filter ListJobsFilter) (int64, error) {
	query := `SELECT count(*) FROM scan_jobs`
	conditions, args, _ := buildJobConditions(filter, 1)
	if len(conditions) > 0 {
		query += " WHERE " + joinAnd(conditions)
	}
	var total int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

// ListPendingJobs returns jobs still in 'pending' status, oldest first,
// used by the scheduler to pick up work (including after a restart).
func (q *Queries) ListPendingJobs(ctx context.Context, limit int32) ([]Job, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, target_url, mode, status, pages_total, pages_finished, issues_summary, options, created_at, started_at, completed_at, error
		FROM scan_jobs WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListRunningJobs returns jobs stuck in 'running' status, used on
// process startup to requeue jobs orphaned by a crash.
func (q *Queries) ListRunningJobs(ctx context.Context) ([]Job, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, target_url, mode, status, pages_total, pages_finished, issues_summary, options, created_at, started_at, completed_at, error
		FROM scan_jobs WHERE status = 'running' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (q *Queries) DeleteExpiredJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM scan_jobs WHERE created_at < $1 AND status IN ('completed', 'failed')`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteJobIfTerminal deletes a scan_jobs row only if its status is
// completed or failed. The returned bool reports whether a row was
// deleted, distinguishing "not found" from "exists but running/pending"
// for the caller.
func (q *Queries) DeleteJobIfTerminal(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM scan_jobs WHERE id = $1 AND status IN ('completed', 'failed')`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertPageParams groups the fields needed to create a scan_pages row.
type InsertPageParams struct {
	ID            uuid.UUID
	JobID         uuid.UUID
	URL           string
	DeviceVariant sql.NullString
}

func (q *Queries) InsertPage(ctx context.Context, arg InsertPageParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO scan_pages (id, job_id, url, status, device_variant)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, job_id, url, status, http_status, load_time_ms, issue_counts, device_variant, created_at
	`, arg.ID, arg.JobID, arg.URL, arg.DeviceVariant)
	return scanPage(row)
}

// UpdatePageResultParams groups the fields written when a page finishes
// analysis (successfully or not).
type UpdatePageResultParams struct {
	ID          uuid.UUID
	Status      string
	HTTPStatus  sql.NullInt32
	LoadTimeMs  sql.NullInt32
	IssueCounts pqtype.NullRawMessage
}

func (q *Queries) UpdatePageResult(ctx context.Context, arg UpdatePageResultParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scan_pages SET status = $2, http_status = $3, load_time_ms = $4, issue_counts = $5 WHERE id = $1
	`, arg.ID, arg.Status, arg.HTTPStatus, arg.LoadTimeMs, arg.IssueCounts)
	return err
}

func (q *Queries) GetPageByID(ctx context.Context, id uuid.UUID) (Page, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, job_id, url, status, http_status, load_time_ms, issue_counts, device_variant, created_at
		FROM scan_pages WHERE id = $1
	`, id)
	return scanPage(row)
}

// ListPagesFilter describes the optional filters/sort/pagination the
// query service's page listing accepts.
type ListPagesFilter struct {
	JobID     uuid.UUID
	Status    string
	Search    string
	SortBy    string
	Direction string
	SortDesc  bool
	Limit     int32
	Offset    int32
}

var pageSortColumns = map[string]string{
	"createdAt":  "sp.created_at",
	"url":        "sp.url",
	"httpStatus": "sp.http_status",
	"loadTimeMs": "sp.load_time_ms",
	"seoScore":   "sm.score",
}

func pageOrderClause(filter ListPagesFilter) string {
	column, ok := pageSortColumns[filter.SortBy]
	if !ok {
		column = "sp.created_at"
	}
	direction := "ASC"
	switch {
	case filter.Direction == "desc", filter.Direction == "" && filter.SortDesc:
		direction = "DESC"
	}
	return " ORDER BY " + column + " " + direction
}

func buildPageConditions(filter ListPagesFilter, pos int) ([]string, []any, int) {
	conditions := []string{fmt.Sprintf("sp.job_id = $%d", pos)}
	args := []any{filter.JobID}
	pos++

	if filter.Status != "" {
		conditions = append(conditions, sqlCond("sp.status", pos))
		args = append(args, filter.Status)
		pos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(" AND sp.url ILIKE $%d", pos))
		args = append(args, "%"+filter.Search+"%")
		pos++
	}
	return conditions, args, pos
}

// ListPagesForJob joins scan_pages with seo_metrics so sort=seoScore
// can order by the joined SEO score, per spec.md §4.8.
func (q *Queries) ListPagesForJob(ctx context.Context, filter ListPagesFilter) ([]Page, error) {
	query := `
		SELECT sp.id, sp.job_id, sp.url, sp.status, sp.http_status, sp.load_time_ms, sp.issue_counts, sp.device_variant, sp.created_at
		FROM scan_pages sp LEFT JOIN seo_metrics sm ON sm.page_id = sp.id
		WHERE `

	conditions, args, pos := buildPageConditions(filter, 1)
	query += joinAnd(conditions)
	query += pageOrderClause(filter)

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += sqlLimit(pos)
	args = append(args, limit)
	pos++

	if filter.Offset > 0 {
		query += sqlOffset(pos)
		args = append(args, filter.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPageRow(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// CountPagesForJob returns the total row count matching filter's
// status/search conditions, ignoring pagination.
func (q *Queries) CountPagesForJob(ctx context.Context, filter ListPagesFilter) (int64, error) {
	query := `SELECT count(*) FROM scan_pages sp WHERE `
	conditions, args, _ := buildPageConditions(filter, 1)
	query += joinAnd(conditions)
	var total int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

func (q *Queries) InsertSeoMetrics(ctx context.Context, m SeoMetrics) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO seo_metrics (id, page_id, title, meta_description, canonical, h1, robots_txt_blocked, schema_org, score, json_ld_score, json_ld_types, json_ld_issues, html_structure_score, html_structure_issues)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, m.ID, m.PageID, m.Title, m.MetaDescription, m.Canonical, m.H1, m.RobotsTxtBlocked, m.SchemaOrg, m.Score, m.JSONLDScore, m.JSONLDTypes, m.JSONLDIssues, m.HTMLStructureScore, m.HTMLStructureIssues)
	return err
}

func (q *Queries) GetSeoMetricsByPageID(ctx context.Context, pageID uuid.UUID) (SeoMetrics, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, page_id, title, meta_description, canonical, h1, robots_txt_blocked, schema_org, score, json_ld_score, json_ld_types, json_ld_issues, html_structure_score, html_structure_issues
		FROM seo_metrics WHERE page_id = $1
	`, pageID)
	var m SeoMetrics
	err := row.Scan(&m.ID, &m.PageID, &m.Title, &m.MetaDescription, &m.Canonical, &m.H1, &m.RobotsTxtBlocked, &m.SchemaOrg, &m.Score, &m.JSONLDScore, &m.JSONLDTypes, &m.JSONLDIssues, &m.HTMLStructureScore, &m.HTMLStructureIssues)
	return m, err
}

func (q *Queries) InsertLinkMetrics(ctx context.Context, m LinkMetrics) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO link_metrics (id, page_id, internal_links, external_links, utm_params, broken_links, redirects)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.PageID, m.InternalLinks, m.ExternalLinks, m.UTMParams, m.BrokenLinks, m.Redirects)
	return err
}

func (q *Queries) GetLinkMetricsByPageID(ctx context.Context, pageID uuid.UUID) (LinkMetrics, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, page_id, internal_links, external_links, utm_params, broken_links, redirects
		FROM link_metrics WHERE page_id = $1
	`, pageID)
	var m LinkMetrics
	err := row.Scan(&m.ID, &m.PageID, &m.InternalLinks, &m.ExternalLinks, &m.UTMParams, &m.BrokenLinks, &m.Redirects)
	return m, err
}

func (q *Queries) InsertTrackingEvent(ctx context.Context, e TrackingEvent) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tracking_events (id, page_id, element, trigger, event_name, platform, device_variant, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.PageID, e.Element, e.Trigger, e.EventName, e.Platform, e.DeviceVariant, e.Payload, e.Status)
	return err
}

func (q *Queries) ListTrackingEventsByPageID(ctx context.Context, pageID uuid.UUID) ([]TrackingEvent, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, page_id, element, trigger, event_name, platform, device_variant, payload, status
		FROM tracking_events WHERE page_id = $1
	`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []TrackingEvent
	for rows.Next() {
		var e TrackingEvent
		if err := rows.Scan(&e.ID, &e.PageID, &e.Element, &e.Trigger, &e.EventName, &e.Platform, &e.DeviceVariant, &e.Payload, &e.Status); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (q *Queries) InsertTaskEvent(ctx context.Context, jobID uuid.UUID, eventType string, payload pqtype.NullRawMessage) (TaskEvent, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO task_events (job_id, type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, job_id, type, payload, created_at
	`, jobID, eventType, payload)
	var e TaskEvent
	err := row.Scan(&e.ID, &e.JobID, &e.Type, &e.Payload, &e.CreatedAt)
	return e, err
}

func (q *Queries) ListTaskEventsSince(ctx context.Context, jobID uuid.UUID, afterID int64) ([]TaskEvent, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, job_id, type, payload, created_at
		FROM task_events WHERE job_id = $1 AND id > $2 ORDER BY id ASC
	`, jobID, afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []TaskEvent
	for rows.Next() {
		var e TaskEvent
		if err := rows.Scan(&e.ID, &e.JobID, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.TargetURL, &j.Mode, &j.Status, &j.PagesTotal, &j.PagesFinished, &j.IssuesSummary, &j.Options, &j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.Error)
	return j, err
}

func scanJobRow(rows *sql.Rows) (Job, error) {
	return scanJob(rows)
}

func scanPage(row rowScanner) (Page, error) {
	var p Page
	err := row.Scan(&p.ID, &p.JobID, &p.URL, &p.Status, &p.HTTPStatus, &p.LoadTimeMs, &p.IssueCounts, &p.DeviceVariant, &p.CreatedAt)
	return p, err
}

func scanPageRow(rows *sql.Rows) (Page, error) {
	return scanPage(rows)
}
