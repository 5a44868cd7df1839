package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-answer-engine-be/pkg/store"
)

const (
	maxBodyBytes = 2 << 20
	maxDocChars  = 20000
)

// Fetcher downloads a page and reduces it to readable text for direct-link
// answering.
type Fetcher struct {
	http *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{http: &http.Client{Timeout: timeout}}
}

// Fetch retrieves url and returns its text content as a document. Non-HTML
// bodies are returned as-is, truncated.
func (f *Fetcher) Fetch(ctx context.Context, url string) (store.Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return store.Document{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "answer-engine/1.0")

	resp, err := f.http.Do(req)
	if err != nil {
		return store.Document{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return store.Document{}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return store.Document{}, fmt.Errorf("read %s: %w", url, err)
	}

	text := string(body)
	title := url
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		if t := extractTitle(text); t != "" {
			title = t
		}
		text = stripHTML(text)
	}
	if len(text) > maxDocChars {
		text = text[:maxDocChars]
	}

	return store.Document{
		PageContent: strings.TrimSpace(text),
		Metadata: store.DocumentMetadata{
			Title:  title,
			URL:    url,
			Engine: "direct",
		},
	}, nil
}

func extractTitle(html string) string {
	lower := strings.ToLower(html)
	start := strings.Index(lower, "<title")
	if start < 0 {
		return ""
	}
	open := strings.Index(html[start:], ">")
	if open < 0 {
		return ""
	}
	rest := html[start+open+1:]
	end := strings.Index(strings.ToLower(rest), "</title>")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// stripHTML removes script/style blocks and tags, collapsing whitespace. A
// heuristic extractor, not a full HTML parser.
func stripHTML(html string) string {
	html = removeBlocks(html, "script")
	html = removeBlocks(html, "style")

	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func removeBlocks(html, tag string) string {
	lower := strings.ToLower(html)
	openTag := "<" + tag
	closeTag := "</" + tag + ">"

	var b strings.Builder
	pos := 0
	for {
		start := strings.Index(lower[pos:], openTag)
		if start < 0 {
			b.WriteString(html[pos:])
			break
		}
		start += pos
		end := strings.Index(lower[start:], closeTag)
		if end < 0 {
			b.WriteString(html[pos:start])
			break
		}
		b.WriteString(html[pos:start])
		pos = start + end + len(closeTag)
	}
	return b.String()
}
