package crawler

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NoTitle is stored when a page has no title element.
const NoTitle = "No Title"

// NoLastModified is stored when the response carries no Last-Modified header.
const NoLastModified = "N/A"

// Document is the parsed form of one fetched page.
type Document struct {
	Title    string
	BodyText string
	Links    []string
}

// Parser extracts the title, body text and outbound links from HTML.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the HTML from r. Links come back absolute with
// fragments stripped, deduplicated within the page; the caller
// applies the same-origin filter.
func (p *Parser) Parse(r io.Reader, baseURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = NoTitle
	}

	return &Document{
		Title:    title,
		BodyText: extractBodyText(doc),
		Links:    extractLinks(doc, baseURL),
	}, nil
}

func extractBodyText(doc *goquery.Document) string {
	content := doc.Clone()
	content.Find("script, style, noscript, iframe").Remove()

	body := content.Find("body")
	var text string
	if body.Length() > 0 {
		text = body.Text()
	} else {
		text = content.Text()
	}
	return strings.Join(strings.Fields(text), " ")
}

func extractLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}

		rel, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(rel)
		abs.Fragment = ""
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}

		resolved := abs.String()
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})
	return links
}

// SameOrigin reports whether candidate shares scheme and host with
// the seed. URLs outside the seed's origin are never enqueued.
func SameOrigin(seed *url.URL, candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return u.Scheme == seed.Scheme && u.Host == seed.Host
}
