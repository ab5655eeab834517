// Package html extracts readable text from HTML pages.
package html

import (
	"context"
	"fmt"
	stdhtml "html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates an HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string { return "html" }

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{"html", "htm", "xhtml"}
}

// Extract returns the page title, if any, followed by the visible text.
func (e *Extractor) Extract(_ context.Context, blob domain.DocumentBlob) (string, error) {
	if !utf8.Valid(blob.Content) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrExtractionFailed, blob.Name)
	}

	page := string(blob.Content)
	body := StripTags(page)
	title := Title(page)
	switch {
	case body == "":
		body = title
	case title != "" && !strings.HasPrefix(body, title):
		body = title + "\n\n" + body
	}
	if body == "" {
		return "", nil
	}
	return body + "\n", nil
}

var (
	titleTag    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag    = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag     = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag      = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	comments    = regexp.MustCompile(`(?s)<!--.*?-->`)
	closeBlock  = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlock   = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	lineBreaks  = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	anyTag      = regexp.MustCompile(`<[^>]+>`)
	spaces      = regexp.MustCompile(`[ \t]+`)
)

// Title returns the decoded contents of the <title> tag, or "".
func Title(page string) string {
	m := titleTag.FindStringSubmatch(page)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(stdhtml.UnescapeString(m[1]))
}

// StripTags drops markup, scripts and styles and returns one line per
// block of text with entities decoded.
func StripTags(page string) string {
	for _, re := range []*regexp.Regexp{scriptTag, styleTag, noscriptTag, headTag, svgTag, comments} {
		page = re.ReplaceAllString(page, "")
	}
	page = openBlock.ReplaceAllString(page, "\n")
	page = closeBlock.ReplaceAllString(page, "\n")
	page = lineBreaks.ReplaceAllString(page, "\n")
	page = anyTag.ReplaceAllString(page, "")
	page = stdhtml.UnescapeString(page)
	page = spaces.ReplaceAllString(page, " ")

	lines := strings.Split(page, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
