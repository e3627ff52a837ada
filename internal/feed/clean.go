package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText strips markup, decodes entities and trims surrounding space
func CleanText(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return strings.TrimSpace(text)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.TrimSpace(text)
	}

	cleaned := strings.ReplaceAll(doc.Text(), "\u00a0", " ")
	return strings.TrimSpace(cleaned)
}
