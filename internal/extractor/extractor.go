// Package extractor pulls values out of HTML pages with CSS selectors.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DatabaseSelector matches the heading the home page lists databases under.
	DatabaseSelector = "h6"
	// CSRFSelector matches the hidden token field of server-rendered forms.
	CSRFSelector = `input[name="_csrf"]`
)

// Logger receives extraction misses. *zap.SugaredLogger satisfies it.
type Logger interface {
	Warnf(template string, args ...interface{})
}

// Extractor defines one extraction rule for a response body.
type Extractor struct {
	// Selector is a CSS selector; only the first match is used.
	Selector string

	// Attr names the attribute to read. Empty means the trimmed text content.
	Attr string

	// Variable is the key the extracted value is stored under.
	Variable string
}

// ExtractAll applies all extractors to the response body and returns extracted key-value pairs.
// Misses are stored as empty strings and reported to logger, which may be nil.
func ExtractAll(body string, extractors []Extractor, logger Logger) map[string]string {
	result := make(map[string]string, len(extractors))
	if len(extractors) == 0 {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		if logger != nil {
			logger.Warnf("unparseable HTML body: %v", err)
		}
		for _, ex := range extractors {
			result[ex.Variable] = ""
		}
		return result
	}

	for _, ex := range extractors {
		value, ok := first(doc, ex)
		if !ok && logger != nil {
			logger.Warnf("selector %q not found", ex.Selector)
		}
		result[ex.Variable] = value
	}
	return result
}

func first(doc *goquery.Document, ex Extractor) (string, bool) {
	sel := doc.Find(ex.Selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	if ex.Attr == "" {
		return strings.TrimSpace(sel.Text()), true
	}
	return sel.Attr(ex.Attr)
}

// DatabaseName returns the trimmed text of the first h6 element, or "" when
// the page has none. A miss is reported to logger, which may be nil.
func DatabaseName(body string, logger Logger) string {
	return ExtractAll(body, []Extractor{{Selector: DatabaseSelector, Variable: "database"}}, logger)["database"]
}

// CSRFToken returns the value of the first hidden _csrf input and whether
// one was present.
func CSRFToken(body string) (string, bool) {
	if !strings.Contains(body, "_csrf") {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	token, ok := first(doc, Extractor{Selector: CSRFSelector, Attr: "value"})
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
