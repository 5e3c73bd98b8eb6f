package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// logSuffix identifies links to log files.
const logSuffix = ".log"

// Parser extracts log and directory links from a directory listing page.
//
// Classification follows the raw href, not the resolved URL: an href ending
// in ".log" is a log, an href ending in "/" is a directory. Links are then
// resolved against the page URL.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains the links found on one listing page.
type ParseResult struct {
	// Title is the page title from <title> tag.
	Title string

	// Logs contains absolute .log URLs, deduplicated, in document order.
	Logs []string

	// Directories contains absolute directory URLs, deduplicated, in document order.
	Directories []string
}

// NewParser creates a new parser for a page at baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and classifies its anchors.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Logs:        make([]string, 0),
		Directories: make([]string, 0),
	}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					result.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				p.classifyAnchor(getAttr(n, "href"), result, seen)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// classifyAnchor records href as a log or directory link.
func (p *Parser) classifyAnchor(href string, result *ParseResult, seen map[string]bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return
	}

	isLog := strings.HasSuffix(href, logSuffix)
	isDir := strings.HasSuffix(href, "/")
	if !isLog && !isDir {
		return
	}

	resolved := p.resolveURL(href)
	if resolved == "" || seen[resolved] {
		return
	}
	seen[resolved] = true

	if isLog {
		result.Logs = append(result.Logs, resolved)
		return
	}
	result.Directories = append(result.Directories, resolved)
}

// resolveURL resolves a relative URL against the base URL.
// Fragments are dropped from the result.
func (p *Parser) resolveURL(href string) string {
	if strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
