package profiling

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Summary is what Summarize reads back from a rendered profile.
type Summary struct {
	Title     string
	Rows      int
	Sections  []string
	Variables []string
	Alerts    []string
}

// Summarize parses a profile produced by HTML.Generate. Reports are checked
// this way before upload so an empty or truncated render is caught early.
func Summarize(html []byte) (Summary, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Summary{}, fmt.Errorf("parse html: %w", err)
	}

	s := Summary{Title: strings.TrimSpace(doc.Find("h1#title").First().Text())}
	if txt := strings.ReplaceAll(strings.TrimSpace(doc.Find("td.rows").First().Text()), ",", ""); txt != "" {
		n, err := strconv.Atoi(txt)
		if err != nil {
			return s, fmt.Errorf("profile row count %q: %w", txt, err)
		}
		s.Rows = n
	}
	doc.Find("section[data-section]").Each(func(_ int, sel *goquery.Selection) {
		s.Sections = append(s.Sections, sel.AttrOr("data-section", ""))
	})
	doc.Find("div.variable").Each(func(_ int, sel *goquery.Selection) {
		if name, ok := sel.Attr("data-name"); ok {
			s.Variables = append(s.Variables, name)
		}
	})
	doc.Find("ul.alert li").Each(func(_ int, sel *goquery.Selection) {
		s.Alerts = append(s.Alerts, strings.TrimSpace(sel.Text()))
	})
	if len(s.Sections) == 0 {
		return s, fmt.Errorf("profile has no sections")
	}
	return s, nil
}

// Has reports whether the profile contains the named section.
func (s Summary) Has(section string) bool {
	for _, x := range s.Sections {
		if x == section {
			return true
		}
	}
	return false
}
