package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SchemaRule is one Schema.org type's required/recommended field list,
// used to score a JSON-LD block.
type SchemaRule struct {
	Required    []string
	Recommended []string
}

// SchemaRules is the fixed Schema.org type → field-list mapping named
// in the Glossary.
var SchemaRules = map[string]SchemaRule{
	"Organization":   {Required: []string{"name", "url"}, Recommended: []string{"logo", "sameAs"}},
	"WebSite":        {Required: []string{"name", "url"}, Recommended: []string{"potentialAction"}},
	"WebPage":        {Required: []string{"name", "url"}, Recommended: []string{"description"}},
	"Article":        {Required: []string{"headline", "author", "datePublished"}, Recommended: []string{"image", "publisher", "dateModified"}},
	"BlogPosting":    {Required: []string{"headline", "author", "datePublished"}, Recommended: []string{"image", "publisher", "dateModified"}},
	"NewsArticle":    {Required: []string{"headline", "author", "datePublished"}, Recommended: []string{"image", "publisher", "dateModified"}},
	"BreadcrumbList": {Required: []string{"itemListElement"}, Recommended: []string{}},
	"Product":        {Required: []string{"name", "image"}, Recommended: []string{"description", "offers", "aggregateRating"}},
	"LocalBusiness":  {Required: []string{"name", "address"}, Recommended: []string{"telephone", "openingHours", "geo"}},
	"Person":         {Required: []string{"name"}, Recommended: []string{"url", "image", "jobTitle"}},
	"Event":          {Required: []string{"name", "startDate", "location"}, Recommended: []string{"endDate", "image", "offers"}},
	"FAQPage":        {Required: []string{"mainEntity"}, Recommended: []string{}},
	"HowTo":          {Required: []string{"name", "step"}, Recommended: []string{"totalTime", "image"}},
	"VideoObject":    {Required: []string{"name", "description", "uploadDate"}, Recommended: []string{"thumbnailUrl", "duration"}},
}

// AnalyzeJsonLd finds every application/ld+json script block, parses
// it (supporting @graph arrays), and scores each against SchemaRules.
func AnalyzeJsonLd(html string) JsonLdAnalysis {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return JsonLdAnalysis{IsValid: false, Issues: []string{"failed to parse HTML"}}
	}

	var blocks []JsonLdBlock
	var types []string

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := sel.Text()
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			blocks = append(blocks, JsonLdBlock{ParseFailed: true, Errors: []string{"invalid JSON"}})
			return
		}

		for _, obj := range expandGraph(parsed) {
			block := scoreJsonLdObject(obj)
			blocks = append(blocks, block)
			if block.Type != "" {
				types = append(types, block.Type)
			}
		}
	})

	if len(blocks) == 0 {
		return JsonLdAnalysis{IsValid: false, Issues: []string{"no JSON-LD blocks found"}}
	}

	var sum float64
	valid := true
	var issues []string
	for _, b := range blocks {
		sum += b.Score
		if b.ParseFailed || !b.HasContext || !b.HasType || len(b.Errors) > 0 {
			valid = false
		}
		issues = append(issues, b.Errors...)
	}
	avg := sum / float64(len(blocks))

	return JsonLdAnalysis{
		Blocks:  blocks,
		Types:   types,
		Score:   avg,
		IsValid: valid,
		Issues:  issues,
	}
}

// expandGraph flattens a parsed JSON-LD value into its constituent
// objects, following @graph arrays one level deep.
func expandGraph(v any) []map[string]any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if graph, ok := obj["@graph"].([]any); ok {
		var out []map[string]any
		for _, item := range graph {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return []map[string]any{obj}
}

func scoreJsonLdObject(obj map[string]any) JsonLdBlock {
	block := JsonLdBlock{}
	score := 100.0

	contextVal, hasContext := obj["@context"]
	block.HasContext = hasContext && strings.Contains(fmt.Sprintf("%v", contextVal), "schema.org")
	if !block.HasContext {
		score -= 20
		block.Errors = append(block.Errors, "missing or invalid @context")
	}

	typeVal, hasType := obj["@type"]
	typeStr, _ := typeVal.(string)
	block.HasType = hasType && typeStr != ""
	if !block.HasType {
		score -= 30
		block.Errors = append(block.Errors, "missing @type")
	}
	block.Type = typeStr

	if rule, ok := SchemaRules[typeStr]; ok {
		for _, field := range rule.Required {
			if !hasField(obj, field) {
				block.MissingRequired = append(block.MissingRequired, field)
				score -= 15
				block.Errors = append(block.Errors, fmt.Sprintf("missing required field %q", field))
			}
		}
		for _, field := range rule.Recommended {
			if !hasField(obj, field) {
				block.MissingRecommended = append(block.MissingRecommended, field)
				score -= 5
			}
		}
	}

	if score < 0 {
		score = 0
	}
	block.Score = score
	return block
}

func hasField(obj map[string]any, field string) bool {
	v, ok := obj[field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}
