package analyzer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"seoscan/internal/model"
)

const maxDiscoveredURLs = 200
const maxUTMExamples = 50

var deviceKeywords = map[string][]string{
	"desktop": {"desktop", "laptop", "pc"},
	"tablet":  {"tablet", "ipad"},
	"mobile":  {"mobile", "phone", "iphone", "android"},
}

// AnalyzeLinks performs a single document-order scan of anchors,
// classifying internal/external, extracting UTM parameters, and
// attributing each anchor to the nearest preceding heading.
func AnalyzeLinks(html, baseURL string) LinkAnalysis {
	result := LinkAnalysis{UTMSummary: model.UTMSummary{Examples: []model.UTMExample{}}}

	base, err := url.Parse(baseURL)
	if err != nil {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return result
	}

	discoveredSeen := make(map[string]bool)
	var currentHeading *model.HeadingRef

	doc.Find("h1, h2, h3, a[href]").Each(func(_ int, sel *goquery.Selection) {
		node := goquery.NodeName(sel)
		switch node {
		case "h1", "h2", "h3":
			text := strings.TrimSpace(sel.Text())
			currentHeading = &model.HeadingRef{Tag: node, Text: text}
			return
		}

		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(linkURL)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		isInternal := strings.EqualFold(resolved.Hostname(), base.Hostname())
		if isInternal {
			result.InternalLinks++
		} else {
			result.ExternalLinks++
		}

		params := utmParams(resolved.Query())
		deviceVariant := deviceVariantFor(sel)

		if isInternal {
			normalized := normalizeDiscovered(resolved)
			if !discoveredSeen[normalized] && len(result.DiscoveredURLs) < maxDiscoveredURLs {
				discoveredSeen[normalized] = true
				result.DiscoveredURLs = append(result.DiscoveredURLs, normalized)
			}
		}

		hasUTM := len(params) > 0
		if hasUTM {
			result.UTMSummary.TrackedLinks++
		} else if isInternal {
			result.UTMSummary.MissingUTM++
		}

		shouldEmit := hasUTM || (isInternal && !hasUTM)
		if shouldEmit && len(result.UTMSummary.Examples) < maxUTMExamples {
			result.UTMSummary.Examples = append(result.UTMSummary.Examples, model.UTMExample{
				URL:           resolved.String(),
				Params:        params,
				Text:          strings.TrimSpace(sel.Text()),
				Heading:       currentHeading,
				DeviceVariant: deviceVariant,
			})
		}
	})

	return result
}

func utmParams(values url.Values) map[string]string {
	params := make(map[string]string)
	for k, v := range values {
		if strings.HasPrefix(strings.ToLower(k), "utm_") && len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func deviceVariantFor(sel *goquery.Selection) string {
	class, _ := sel.Attr("class")
	dataViewport, _ := sel.Attr("data-viewport")
	dataDevice, _ := sel.Attr("data-device")
	haystack := strings.ToLower(class + " " + dataViewport + " " + dataDevice)

	for _, variant := range []string{"mobile", "tablet", "desktop"} {
		for _, kw := range deviceKeywords[variant] {
			if strings.Contains(haystack, kw) {
				return variant
			}
		}
	}
	return ""
}

func normalizeDiscovered(u *url.URL) string {
	clone := *u
	clone.Fragment = ""
	s := clone.String()
	s = strings.TrimSuffix(s, "/")
	return s
}

// NormalizeURL strips the fragment and one trailing slash, matching
// the Glossary's "Normalized URL" definition. It is idempotent.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return normalizeDiscovered(u)
}
