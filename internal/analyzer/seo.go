package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var robotsNoindexRe = regexp.MustCompile(`(?i)noindex`)

// AnalyzeSeo extracts title/description/canonical/H1/robots findings
// from raw HTML and computes the composite SEO score.
func AnalyzeSeo(html string) SeoAnalysis {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return SeoAnalysis{Score: 0, H1Quality: H1QualityResult{Reasons: []string{"existence=0"}}}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	metaDescription := strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	canonical := strings.TrimSpace(doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))
	robotsContent := doc.Find(`meta[name="robots"]`).AttrOr("content", "")
	robotsNoindex := robotsNoindexRe.MatchString(robotsContent)

	h1Sel := doc.Find("h1").First()
	rawH1, _ := h1Sel.Html()
	h1Text := strings.TrimSpace(h1Sel.Text())

	var schemaOrg any
	firstScript := doc.Find(`script[type="application/ld+json"]`).First()
	if firstScript.Length() > 0 {
		raw := firstScript.Text()
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			schemaOrg = parsed
		} else {
			schemaOrg = strings.TrimSpace(raw)
		}
	}

	h1Quality := computeH1Quality(rawH1, title)

	score := 100
	if title == "" {
		score -= 30
	}
	if metaDescription == "" {
		score -= 20
	}
	if canonical == "" {
		score -= 10
	}
	if robotsNoindex {
		score -= 20
	}
	if firstScript.Length() == 0 {
		score -= 5
	}
	score -= roundInt(float64(100-h1Quality.Score) * 0.2)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return SeoAnalysis{
		Title:           title,
		MetaDescription: metaDescription,
		Canonical:       canonical,
		H1:              h1Text,
		RobotsNoindex:   robotsNoindex,
		SchemaOrg:       schemaOrg,
		Score:           score,
		H1Quality:       h1Quality,
	}
}

func roundInt(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
