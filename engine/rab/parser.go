package rab

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// notFoundHints are matched against the lower-cased, whitespace-collapsed
// body text of the answer page.
var notFoundHints = []string{
	"não encontrad",
	"nao encontrad",
	"não foi encontrad",
	"nao foi encontrad",
	"nenhum registro",
	"nenhuma aeronave",
	"não existe",
	"nao existe",
	"inexistente",
}

// Parse extracts fields, links, and the not-found hint from an answer page.
// Extraction is heuristic: a page whose layout does not match yields an
// empty record rather than an error.
func Parse(html string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	page := Page{Links: []Link{}}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() < 2 {
			return
		}
		label := cleanLabel(cells.Eq(0).Text())
		value := collapse(cells.Eq(1).Text())
		if label == "" || value == "" {
			return
		}
		page.Fields.Set(label, value)
	})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		text := collapse(a.Text())
		if href == "" || text == "" {
			return
		}
		page.Links = append(page.Links, Link{Text: text, Href: href})
	})

	body := doc.Find("body")
	body.Find("script, style, noscript").Remove()
	page.MaybeNotFound = hasNotFoundHint(strings.ToLower(collapse(body.Text())))

	return page, nil
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(html string) (Page, error)

func (f ParserFunc) Parse(html string) (Page, error) { return f(html) }

// DefaultParser is Parse behind the Parser interface.
var DefaultParser Parser = ParserFunc(Parse)

func hasNotFoundHint(text string) bool {
	for _, hint := range notFoundHints {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}

// collapse trims s and folds every whitespace run (including NBSP) to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanLabel collapses s and strips any trailing colons.
func cleanLabel(s string) string {
	return strings.TrimRight(collapse(s), ": ")
}
