// Package analyzer implements the pure, deterministic functions that
// turn a fetched page's raw HTML into SEO, link, tracking, JSON-LD,
// and HTML-structure findings. None of these functions perform I/O or
// return an error for malformed input — parse failures degrade to
// absent fields, matching the Page Pipeline's expectation that
// analysis never aborts a scan.
package analyzer

import "seoscan/internal/model"

// SeoAnalysis is analyzeSeo's result, later folded into a
// model.SeoMetrics row by the Page Pipeline.
type SeoAnalysis struct {
	Title           string
	MetaDescription string
	Canonical       string
	H1              string
	RobotsNoindex   bool
	SchemaOrg       any
	Score           int
	H1Quality       H1QualityResult
}

// H1QualityResult is the six-subscore breakdown behind the H1 quality
// number folded into analyzeSeo's score penalty.
type H1QualityResult struct {
	Score      int
	Existence  int
	Length     int
	Keyword    int
	Content    int
	UX         int
	Technical  int
	Reasons    []string
}

// LinkAnalysis is analyzeLinks's result.
type LinkAnalysis struct {
	InternalLinks  int
	ExternalLinks  int
	UTMSummary     model.UTMSummary
	DiscoveredURLs []string
}

// JsonLdBlock is one parsed (or failed) JSON-LD script block.
type JsonLdBlock struct {
	Type               string
	HasContext         bool
	HasType            bool
	MissingRequired     []string
	MissingRecommended []string
	Score              float64
	Errors             []string
	ParseFailed        bool
}

// JsonLdAnalysis is analyzeJsonLd's result.
type JsonLdAnalysis struct {
	Blocks  []JsonLdBlock
	Types   []string
	Score   float64
	IsValid bool
	Issues  []string
}

// HtmlStructureAnalysis is analyzeHtmlStructure's result.
type HtmlStructureAnalysis struct {
	SemanticScore float64
	HeadingScore  float64
	ImageScore    float64
	FormScore     float64
	AriaScore     float64
	ListScore     float64
	TableScore    float64
	OverallScore  float64
	Issues        []string
}

// PageAnalysis bundles every analyzer's output for one fetched page,
// the shape the Page Pipeline consumes to build its child rows.
type PageAnalysis struct {
	SEO           SeoAnalysis
	Links         LinkAnalysis
	Tracking      []model.TrackingEvent
	JsonLd        JsonLdAnalysis
	HtmlStructure HtmlStructureAnalysis
}
