// Package model holds the data-model types shared by the scan engine:
// jobs, pages, their child metric rows, tracking events, and the
// task-event log. These mirror the persisted schema in db/migrations.
package model

import "time"

// JobMode selects whether a job scans a single URL or crawls a site.
type JobMode string

const (
	ModeSingle JobMode = "single"
	ModeSite   JobMode = "site"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// PageStatus is the lifecycle state of a Page.
type PageStatus string

const (
	PagePending    PageStatus = "pending"
	PageProcessing PageStatus = "processing"
	PageCompleted  PageStatus = "completed"
	PageFailed     PageStatus = "failed"
)

// TaskEventType enumerates the task-event log's event kinds.
type TaskEventType string

const (
	EventQueued        TaskEventType = "queued"
	EventStarted       TaskEventType = "started"
	EventPageCompleted TaskEventType = "page_completed"
	EventCompleted     TaskEventType = "completed"
	EventFailed        TaskEventType = "failed"
	EventCancelled     TaskEventType = "cancelled"
)

// TrackingPlatform is a known analytics platform a tracking call can
// be attributed to.
type TrackingPlatform string

const (
	PlatformMixpanel TrackingPlatform = "mixpanel"
	PlatformGA       TrackingPlatform = "ga"
)

// TrackingStatus distinguishes a call that was merely referenced on
// the page from one that actually fired during analysis.
type TrackingStatus string

const (
	TrackingDetected TrackingStatus = "detected"
	TrackingFired    TrackingStatus = "fired"
)

// JobOptions are the user-supplied knobs for a scan job.
type JobOptions struct {
	SiteDepth        int    `json:"siteDepth,omitempty"`
	MaxPages         int    `json:"maxPages,omitempty"`
	UserAgent        string `json:"userAgent,omitempty"`
	RequestTimeoutMs int    `json:"requestTimeoutMs,omitempty"`
}

// Job is the durable row driving one scan from pending to terminal.
type Job struct {
	ID            string      `json:"id"`
	TargetURL     string      `json:"targetUrl"`
	Mode          JobMode     `json:"mode"`
	Status        JobStatus   `json:"status"`
	PagesTotal    int         `json:"pagesTotal"`
	PagesFinished int         `json:"pagesFinished"`
	IssuesSummary *Aggregated `json:"issuesSummary,omitempty"`
	Options       *JobOptions `json:"options,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	StartedAt     *time.Time  `json:"startedAt,omitempty"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// Page is one fetched/analyzed URL belonging to a Job.
type Page struct {
	ID            string        `json:"id"`
	JobID         string        `json:"jobId"`
	URL           string        `json:"url"`
	Status        PageStatus    `json:"status"`
	HTTPStatus    *int          `json:"httpStatus,omitempty"`
	LoadTimeMs    *int          `json:"loadTimeMs,omitempty"`
	IssueCounts   *IssueSummary `json:"issueCounts,omitempty"`
	DeviceVariant string        `json:"deviceVariant,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// SeoMetrics is the 0..1 SEO analysis row for a Page.
type SeoMetrics struct {
	PageID              string   `json:"pageId"`
	Title               string   `json:"title,omitempty"`
	MetaDescription     string   `json:"metaDescription,omitempty"`
	Canonical           string   `json:"canonical,omitempty"`
	H1                  string   `json:"h1,omitempty"`
	RobotsNoindex       bool     `json:"robotsNoindex"`
	SchemaOrg           any      `json:"schemaOrg,omitempty"`
	Score               int      `json:"score"`
	JSONLDScore         float64  `json:"jsonLdScore"`
	JSONLDTypes         []string `json:"jsonLdTypes,omitempty"`
	JSONLDIssues        []string `json:"jsonLdIssues,omitempty"`
	HTMLStructureScore  float64  `json:"htmlStructureScore"`
	HTMLStructureIssues []string `json:"htmlStructureIssues,omitempty"`
}

// LinkMetrics is the 0..1 link/UTM analysis row for a Page.
type LinkMetrics struct {
	PageID        string      `json:"pageId"`
	InternalLinks int         `json:"internalLinks"`
	ExternalLinks int         `json:"externalLinks"`
	UTMParams     *UTMSummary `json:"utmParams,omitempty"`
	BrokenLinks   int         `json:"brokenLinks"`
	Redirects     int         `json:"redirects"`
}

// UTMExample is one captured anchor worth surfacing in the UTM summary.
type UTMExample struct {
	URL           string            `json:"url"`
	Params        map[string]string `json:"params"`
	Text          string            `json:"text"`
	Heading       *HeadingRef       `json:"heading,omitempty"`
	DeviceVariant string            `json:"deviceVariant,omitempty"`
}

// HeadingRef identifies the heading an anchor was attributed to.
type HeadingRef struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// UTMSummary aggregates UTM-tagging coverage for one page.
type UTMSummary struct {
	TrackedLinks int          `json:"trackedLinks"`
	MissingUTM   int          `json:"missingUtm"`
	Examples     []UTMExample `json:"examples"`
}

// TrackingEvent is 0..n per Page: one detected or fired analytics call.
type TrackingEvent struct {
	ID            string           `json:"id"`
	PageID        string           `json:"pageId"`
	Element       string           `json:"element,omitempty"`
	Trigger       string           `json:"trigger,omitempty"`
	Platform      TrackingPlatform `json:"platform"`
	Status        TrackingStatus   `json:"status"`
	EventName     string           `json:"eventName,omitempty"`
	DeviceVariant string           `json:"deviceVariant,omitempty"`
	Payload       map[string]any   `json:"payload,omitempty"`
}

// TaskEvent is one append-only row in the task-event log.
type TaskEvent struct {
	ID        int64          `json:"id"`
	JobID     string         `json:"jobId"`
	Type      TaskEventType  `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// IssueSummary is the composite, per-page finding summary produced by
// BuildIssueSummary.
type IssueSummary struct {
	MissingTitle       bool `json:"missingTitle"`
	MissingDescription bool `json:"missingDescription"`
	MissingH1          bool `json:"missingH1"`
	MissingCanonical   bool `json:"missingCanonical"`
	RobotsBlocked      bool `json:"robotsBlocked"`

	JSONLDMissing    bool `json:"jsonLdMissing"`
	JSONLDInvalid    bool `json:"jsonLdInvalid"`
	JSONLDIncomplete bool `json:"jsonLdIncomplete"`

	InternalLinks int `json:"internalLinks"`
	ExternalLinks int `json:"externalLinks"`
	UTMMissing    int `json:"utmMissing"`
	UTMTracked    int `json:"utmTracked"`

	MixpanelMissing bool `json:"mixpanelMissing"`
	GAMissing       bool `json:"gaMissing"`

	SEOScore int `json:"seoScore"`

	SEOIssues      int    `json:"seoIssues"`
	LinkIssues     int    `json:"linkIssues"`
	TrackingIssues int    `json:"trackingIssues"`
	Error          string `json:"error,omitempty"`
}

// Scorecard is the aggregated health scorecard produced by
// AggregateSummaries.
type Scorecard struct {
	SEOAverageScore         int            `json:"seoAverageScore"`
	UTMCoveragePercent      int            `json:"utmCoveragePercent"`
	PlatformCoverage        map[string]int `json:"platformCoverage"`
	TrackingCoverageAverage int            `json:"trackingCoverageAverage"`
	OverallHealthPercent    int            `json:"overallHealthPercent"`
}

// Aggregated is the job-level rollup of per-page IssueSummary values.
type Aggregated struct {
	PagesAnalysed int `json:"pagesAnalysed"`

	MissingTitle       int `json:"missingTitle"`
	MissingDescription int `json:"missingDescription"`
	MissingH1          int `json:"missingH1"`
	MissingCanonical   int `json:"missingCanonical"`
	RobotsBlocked      int `json:"robotsBlocked"`

	JSONLDMissing    int `json:"jsonLdMissing"`
	JSONLDInvalid    int `json:"jsonLdInvalid"`
	JSONLDIncomplete int `json:"jsonLdIncomplete"`

	InternalLinks int `json:"internalLinks"`
	ExternalLinks int `json:"externalLinks"`
	UTMMissing    int `json:"utmMissing"`
	UTMTracked    int `json:"utmTracked"`

	MixpanelMissing int `json:"mixpanelMissing"`
	GAMissing       int `json:"gaMissing"`

	Scorecard Scorecard `json:"scorecard"`
}
