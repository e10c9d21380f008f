package transform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML returns the visible text of an HTML fragment. Text nodes are
// trimmed and joined with single spaces; script and style contents are
// dropped.
func CleanHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()

	var parts []string
	collectText(doc.Find("body"), &parts)
	return strings.Join(parts, " ")
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			for _, word := range strings.Fields(s.Text()) {
				*parts = append(*parts, word)
			}
			return
		}
		collectText(s, parts)
	})
}
