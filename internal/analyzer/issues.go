package analyzer

import "seoscan/internal/model"

const jsonLdIncompleteThreshold = 70.0

// BuildIssueSummary folds the per-analyzer outputs for one page into
// the composite model.IssueSummary persisted on the Page row.
func BuildIssueSummary(seo SeoAnalysis, links LinkAnalysis, tracking []model.TrackingEvent, jsonLd JsonLdAnalysis) model.IssueSummary {
	summary := model.IssueSummary{
		MissingTitle:       seo.Title == "",
		MissingDescription: seo.MetaDescription == "",
		MissingH1:          seo.H1 == "",
		MissingCanonical:   seo.Canonical == "",
		RobotsBlocked:      seo.RobotsNoindex,

		JSONLDMissing: len(jsonLd.Blocks) == 0,
		JSONLDInvalid: !jsonLd.IsValid && len(jsonLd.Blocks) > 0,

		InternalLinks: links.InternalLinks,
		ExternalLinks: links.ExternalLinks,
		UTMMissing:    links.UTMSummary.MissingUTM,
		UTMTracked:    links.UTMSummary.TrackedLinks,

		SEOScore: seo.Score,
	}
	summary.JSONLDIncomplete = !summary.JSONLDMissing && !summary.JSONLDInvalid && jsonLd.Score < jsonLdIncompleteThreshold

	summary.MixpanelMissing = true
	summary.GAMissing = true
	for _, ev := range tracking {
		switch ev.Platform {
		case model.PlatformMixpanel:
			summary.MixpanelMissing = false
		case model.PlatformGA:
			summary.GAMissing = false
		}
	}

	seoFlags := []bool{
		summary.MissingTitle, summary.MissingDescription, summary.MissingH1,
		summary.MissingCanonical, summary.RobotsBlocked,
		summary.JSONLDMissing, summary.JSONLDInvalid, summary.JSONLDIncomplete,
	}
	for _, f := range seoFlags {
		if f {
			summary.SEOIssues++
		}
	}
	summary.LinkIssues = summary.UTMMissing
	summary.TrackingIssues = boolToInt(summary.MixpanelMissing) + boolToInt(summary.GAMissing)

	return summary
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AggregateSummaries sums per-page IssueSummary counters into a
// job-level Aggregated rollup and scorecard.
func AggregateSummaries(summaries []model.IssueSummary) model.Aggregated {
	agg := model.Aggregated{PagesAnalysed: len(summaries)}
	if len(summaries) == 0 {
		return agg
	}

	var seoScoreSum int
	for _, s := range summaries {
		if s.MissingTitle {
			agg.MissingTitle++
		}
		if s.MissingDescription {
			agg.MissingDescription++
		}
		if s.MissingH1 {
			agg.MissingH1++
		}
		if s.MissingCanonical {
			agg.MissingCanonical++
		}
		if s.RobotsBlocked {
			agg.RobotsBlocked++
		}
		if s.JSONLDMissing {
			agg.JSONLDMissing++
		}
		if s.JSONLDInvalid {
			agg.JSONLDInvalid++
		}
		if s.JSONLDIncomplete {
			agg.JSONLDIncomplete++
		}
		agg.InternalLinks += s.InternalLinks
		agg.ExternalLinks += s.ExternalLinks
		agg.UTMMissing += s.UTMMissing
		agg.UTMTracked += s.UTMTracked
		if s.MixpanelMissing {
			agg.MixpanelMissing++
		}
		if s.GAMissing {
			agg.GAMissing++
		}
		seoScoreSum += s.SEOScore
	}

	n := len(summaries)
	seoAverage := roundInt(float64(seoScoreSum) / float64(n))

	utmDenominator := agg.UTMTracked + agg.UTMMissing
	utmCoverage := 0
	if utmDenominator > 0 {
		utmCoverage = roundInt(float64(agg.UTMTracked) / float64(utmDenominator) * 100)
	}

	mixpanelCoverage := roundInt(float64(n-agg.MixpanelMissing) / float64(n) * 100)
	gaCoverage := roundInt(float64(n-agg.GAMissing) / float64(n) * 100)
	trackingAverage := roundInt(float64(mixpanelCoverage+gaCoverage) / 2)

	agg.Scorecard = model.Scorecard{
		SEOAverageScore:    seoAverage,
		UTMCoveragePercent: utmCoverage,
		PlatformCoverage: map[string]int{
			"mixpanel": mixpanelCoverage,
			"ga":       gaCoverage,
		},
		TrackingCoverageAverage: trackingAverage,
		OverallHealthPercent:    roundInt(float64(seoAverage+utmCoverage+trackingAverage) / 3),
	}

	return agg
}
