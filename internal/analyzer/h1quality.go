package analyzer

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe      = regexp.MustCompile(`<[^>]*>`)
	svgOrImgH1Re   = regexp.MustCompile(`(?is)<(svg|img)\b`)
	genericPhrases = []string{
		"welcome to", "home page", "untitled", "click here", "lorem ipsum",
		"page not found", "default title",
	}
	actionValueWords = []string{
		"get", "discover", "learn", "save", "free", "best", "guide", "how to",
		"start", "build", "improve", "boost", "unlock", "grow",
	}
)

// computeH1Quality scores a raw H1 string (possibly still containing
// inline markup) against the title it shares a page with, per the
// six-subscore breakdown: existence, length, keyword strategy,
// content quality, UX, and technical implementation.
func computeH1Quality(rawH1, title string) H1QualityResult {
	if rawH1 == "" {
		return H1QualityResult{Score: 0, Reasons: []string{"existence=0"}}
	}

	stripped := strings.TrimSpace(htmlTagRe.ReplaceAllString(rawH1, ""))
	if stripped == "" {
		return H1QualityResult{Score: 0, Reasons: []string{"existence=0"}}
	}

	var reasons []string

	existence := 15

	length := scoreLength(stripped)
	keyword := scoreKeyword(stripped, title)
	content := scoreContent(stripped)
	ux := scoreUX(stripped)
	technical := scoreTechnical(rawH1)

	total := existence + length + keyword + content + ux + technical
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return H1QualityResult{
		Score:     total,
		Existence: existence,
		Length:    length,
		Keyword:   keyword,
		Content:   content,
		UX:        ux,
		Technical: technical,
		Reasons:   reasons,
	}
}

func scoreLength(h1 string) int {
	n := len([]rune(h1))
	switch {
	case n >= 20 && n <= 70:
		return 15
	case n >= 10 && n < 20, n > 70 && n <= 90:
		return 10
	case n > 0 && n < 10, n > 90:
		return 5
	default:
		return 0
	}
}

func scoreKeyword(h1, title string) int {
	if title == "" {
		return 10
	}
	h1Words := wordSet(h1)
	titleWords := wordSet(title)
	if len(h1Words) == 0 || len(titleWords) == 0 {
		return 10
	}

	overlap := 0
	for w := range h1Words {
		if titleWords[w] {
			overlap++
		}
	}
	density := float64(overlap) / float64(len(h1Words))

	score := 10
	if density > 0 {
		score += int(15 * density)
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(h1)), firstWord(strings.ToLower(title))) {
		score += 3
	}
	if len(strings.Fields(h1)) >= 5 {
		score += 2 // long-tail presence
	}
	if score > 25 {
		score = 25
	}
	return score
}

func scoreContent(h1 string) int {
	lower := strings.ToLower(h1)
	score := 20

	for _, g := range genericPhrases {
		if strings.Contains(lower, g) {
			score -= 10
		}
	}

	hasAction := false
	for _, w := range actionValueWords {
		if strings.Contains(lower, w) {
			hasAction = true
			break
		}
	}
	if !hasAction {
		score -= 3
	}

	if !strings.HasSuffix(strings.TrimSpace(h1), "...") && len(strings.TrimSpace(h1)) > 0 {
		// phrase completeness: full sentence/phrase, not truncated
	} else {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	if score > 20 {
		score = 20
	}
	return score
}

func scoreUX(h1 string) int {
	score := 15

	words := strings.Fields(strings.ToLower(h1))
	seen := make(map[string]int)
	for _, w := range words {
		seen[w]++
		if seen[w] > 1 {
			score -= 3
		}
	}

	upper := strings.ToUpper(h1)
	if h1 == upper && len(h1) > 3 {
		score -= 5 // excessive caps
	}

	if score < 0 {
		score = 0
	}
	if score > 15 {
		score = 15
	}
	return score
}

func scoreTechnical(rawH1 string) int {
	score := 10
	if svgOrImgH1Re.MatchString(rawH1) {
		score -= 6
	}
	nested := strings.Count(rawH1, "<") - strings.Count(rawH1, "</")
	if nested > 3 {
		score -= 4
	}
	if score < 0 {
		score = 0
	}
	return score
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'")
		if w != "" {
			set[w] = true
		}
	}
	return set
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
