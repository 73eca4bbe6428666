package websearch

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// MinUsableLength is the shortest extracted text worth generating from.
const MinUsableLength = 100

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// Document is the readable text pulled out of a fetched page.
type Document struct {
	Title    string
	URL      string
	Markdown string
}

// Extractor turns raw page HTML into clean markdown text.
type Extractor struct {
	converter *md.Converter
}

// NewExtractor creates an extractor with GitHub-flavored markdown output.
func NewExtractor() *Extractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Extractor{converter: converter}
}

// Extract pulls the readable article out of page HTML and converts it to
// markdown. Pages whose readable text is shorter than MinUsableLength
// return ErrUnusableContent.
func (e *Extractor) Extract(pageURL string, pageHTML []byte) (*Document, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockedURL, err)
	}

	title := ""
	content := ""
	article, err := readability.FromReader(bytes.NewReader(pageHTML), parsedURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		title = article.Title
		content = article.Content
	} else {
		// Readability found no article node. Fall back to the whole page
		// minus scripts and styles.
		title = htmlTitle(pageHTML)
		content = string(pageHTML)
	}

	markdown, err := e.converter.ConvertString(content)
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}
	markdown = cleanMarkdown(markdown)

	if len(markdown) < MinUsableLength {
		return nil, fmt.Errorf("%w: %d chars from %s", ErrUnusableContent, len(markdown), pageURL)
	}

	return &Document{Title: title, URL: pageURL, Markdown: markdown}, nil
}

// htmlTitle extracts the <title> text from raw HTML.
func htmlTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// cleanMarkdown collapses excessive blank lines and trims trailing space.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
