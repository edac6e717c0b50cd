package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var semanticTags = []string{"header", "nav", "main", "footer", "article", "aside", "section"}

// AnalyzeHtmlStructure audits semantic-tag presence, heading
// hierarchy, image/form/ARIA/list/table accessibility concerns over a
// real DOM parse tree, producing per-axis sub-scores and a weighted
// overall score.
func AnalyzeHtmlStructure(html string) HtmlStructureAnalysis {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return HtmlStructureAnalysis{Issues: []string{"failed to parse HTML"}}
	}

	var issues []string

	semanticScore, semIssues := scoreSemantic(doc)
	headingScore, headIssues := scoreHeadings(doc)
	imageScore, imgIssues := scoreImages(doc)
	formScore, formIssues := scoreForms(doc)
	ariaScore, ariaIssues := scoreAria(doc)
	listScore, listIssues := scoreLists(doc)
	tableScore, tableIssues := scoreTables(doc)

	issues = append(issues, semIssues...)
	issues = append(issues, headIssues...)
	issues = append(issues, imgIssues...)
	issues = append(issues, formIssues...)
	issues = append(issues, ariaIssues...)
	issues = append(issues, listIssues...)
	issues = append(issues, tableIssues...)

	overall := semanticScore*0.20 + headingScore*0.25 + imageScore*0.20 +
		formScore*0.10 + ariaScore*0.15 + listScore*0.05 + tableScore*0.05

	return HtmlStructureAnalysis{
		SemanticScore: semanticScore,
		HeadingScore:  headingScore,
		ImageScore:    imageScore,
		FormScore:     formScore,
		AriaScore:     ariaScore,
		ListScore:     listScore,
		TableScore:    tableScore,
		OverallScore:  overall,
		Issues:        issues,
	}
}

func scoreSemantic(doc *goquery.Document) (float64, []string) {
	present := 0
	var issues []string
	for _, tag := range semanticTags {
		if doc.Find(tag).Length() > 0 {
			present++
		} else {
			issues = append(issues, "missing <"+tag+">")
		}
	}
	return 100 * float64(present) / float64(len(semanticTags)), issues
}

func scoreHeadings(doc *goquery.Document) (float64, []string) {
	var issues []string
	var levels []int
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)
		levels = append(levels, int(tag[1]-'0'))
	})

	if len(levels) == 0 {
		return 0, []string{"no headings found"}
	}

	h1Count := 0
	for _, l := range levels {
		if l == 1 {
			h1Count++
		}
	}
	score := 100.0
	if h1Count == 0 {
		score -= 40
		issues = append(issues, "missing H1")
	} else if h1Count > 1 {
		score -= 15
		issues = append(issues, "multiple H1 elements")
	}

	skips := 0
	for i := 1; i < len(levels); i++ {
		if levels[i]-levels[i-1] > 1 {
			skips++
		}
	}
	if skips > 0 {
		score -= float64(10 * skips)
		issues = append(issues, "skipped heading levels")
	}

	if score < 0 {
		score = 0
	}
	return score, issues
}

func scoreImages(doc *goquery.Document) (float64, []string) {
	imgs := doc.Find("img")
	total := imgs.Length()
	if total == 0 {
		return 100, nil
	}

	missingAlt := 0
	missingDims := 0
	notLazy := 0
	imgs.Each(func(_ int, sel *goquery.Selection) {
		if _, ok := sel.Attr("alt"); !ok {
			missingAlt++
		}
		_, hasW := sel.Attr("width")
		_, hasH := sel.Attr("height")
		if !hasW || !hasH {
			missingDims++
		}
		if _, ok := sel.Attr("loading"); !ok {
			notLazy++
		}
	})

	var issues []string
	score := 100.0
	if missingAlt > 0 {
		score -= 50 * float64(missingAlt) / float64(total)
		issues = append(issues, "images missing alt text")
	}
	if missingDims > 0 {
		score -= 30 * float64(missingDims) / float64(total)
		issues = append(issues, "images missing width/height")
	}
	if notLazy > 0 {
		score -= 20 * float64(notLazy) / float64(total)
		issues = append(issues, "images missing loading hint")
	}
	if score < 0 {
		score = 0
	}
	return score, issues
}

func scoreForms(doc *goquery.Document) (float64, []string) {
	forms := doc.Find("form")
	if forms.Length() == 0 {
		return 100, nil
	}

	inputs := doc.Find("input, select, textarea")
	total := inputs.Length()
	if total == 0 {
		return 100, nil
	}

	unlabeled := 0
	inputs.Each(func(_ int, sel *goquery.Selection) {
		id, hasID := sel.Attr("id")
		if hasID && id != "" {
			if doc.Find(`label[for="` + id + `"]`).Length() > 0 {
				return
			}
		}
		if _, ok := sel.Attr("aria-label"); ok {
			return
		}
		if sel.Closest("label").Length() > 0 {
			return
		}
		unlabeled++
	})

	var issues []string
	score := 100.0
	if unlabeled > 0 {
		score -= 100 * float64(unlabeled) / float64(total)
		issues = append(issues, "unlabeled form fields")
	}
	if score < 0 {
		score = 0
	}
	return score, issues
}

func scoreAria(doc *goquery.Document) (float64, []string) {
	interactive := doc.Find("button, a[href], input, select, textarea, [role]")
	total := interactive.Length()
	if total == 0 {
		return 100, nil
	}

	missingName := 0
	interactive.Each(func(_ int, sel *goquery.Selection) {
		if _, ok := sel.Attr("aria-label"); ok {
			return
		}
		if _, ok := sel.Attr("aria-labelledby"); ok {
			return
		}
		if strings.TrimSpace(sel.Text()) != "" {
			return
		}
		if _, ok := sel.Attr("title"); ok {
			return
		}
		missingName++
	})

	var issues []string
	score := 100.0
	if missingName > 0 {
		score -= 80 * float64(missingName) / float64(total)
		issues = append(issues, "interactive elements missing accessible name")
	}
	if score < 0 {
		score = 0
	}
	return score, issues
}

func scoreLists(doc *goquery.Document) (float64, []string) {
	lists := doc.Find("ul, ol")
	if lists.Length() == 0 {
		return 100, nil
	}
	bad := 0
	lists.Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Filter("li").Length() == 0 {
			bad++
		}
	})
	if bad == 0 {
		return 100, nil
	}
	return 100 * float64(lists.Length()-bad) / float64(lists.Length()), []string{"list elements with no <li> children"}
}

func scoreTables(doc *goquery.Document) (float64, []string) {
	tables := doc.Find("table")
	if tables.Length() == 0 {
		return 100, nil
	}
	missingHeader := 0
	tables.Each(func(_ int, sel *goquery.Selection) {
		if sel.Find("th").Length() == 0 {
			missingHeader++
		}
	})
	if missingHeader == 0 {
		return 100, nil
	}
	return 100 * float64(tables.Length()-missingHeader) / float64(tables.Length()), []string{"tables missing header cells"}
}
