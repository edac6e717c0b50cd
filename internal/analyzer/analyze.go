package analyzer

// Analyze runs every pure analyzer over one page's HTML and baseURL,
// bundling their outputs for the Page Pipeline to persist.
func Analyze(html, baseURL string) PageAnalysis {
	return PageAnalysis{
		SEO:           AnalyzeSeo(html),
		Links:         AnalyzeLinks(html, baseURL),
		Tracking:      AnalyzeTracking(html),
		JsonLd:        AnalyzeJsonLd(html),
		HtmlStructure: AnalyzeHtmlStructure(html),
	}
}
