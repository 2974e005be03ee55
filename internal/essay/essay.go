// Package essay loads the rendered essay archive: one file per essay,
// YAML frontmatter followed by the rendered HTML container produced by
// the site pipeline.
package essay

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

// wordsPerMinute matches the archive pipeline's reading-time estimate.
const wordsPerMinute = 230

// Essay is one archive entry. Body holds the rendered HTML.
type Essay struct {
	Slug        string
	Title       string
	Date        string
	Words       int
	ReadingTime int
	Body        string

	parsed *goquery.Document
}

type frontmatter struct {
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Slug        string `yaml:"slug"`
	Words       int    `yaml:"words"`
	ReadingTime int    `yaml:"readingTime"`
}

// LoadDir reads every .html file in dir, newest first. Undated essays
// sort last.
func LoadDir(dir string) ([]Essay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading archive dir: %w", err)
	}
	var essays []Essay
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		e, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", entry.Name(), err)
		}
		essays = append(essays, e)
	}
	sort.SliceStable(essays, func(i, j int) bool {
		di, dj := parseDate(essays[i].Date), parseDate(essays[j].Date)
		if di.IsZero() != dj.IsZero() {
			return dj.IsZero()
		}
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return essays[i].Slug < essays[j].Slug
	})
	return essays, nil
}

// LoadFile parses one archive entry.
func LoadFile(path string) (Essay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Essay{}, err
	}
	meta, body := splitFrontmatter(string(data))

	var fm frontmatter
	if meta != "" {
		if err := yaml.Unmarshal([]byte(meta), &fm); err != nil {
			return Essay{}, fmt.Errorf("frontmatter: %w", err)
		}
	}

	e := Essay{
		Slug:        fm.Slug,
		Title:       fm.Title,
		Date:        fm.Date,
		Words:       fm.Words,
		ReadingTime: fm.ReadingTime,
		Body:        body,
	}
	if e.Slug == "" {
		e.Slug = strings.TrimSuffix(filepath.Base(path), ".html")
	}
	if e.Title == "" {
		e.Title = e.Slug
	}
	if e.Words == 0 {
		e.Words = countWords(body)
	}
	if e.ReadingTime == 0 && e.Words > 0 {
		e.ReadingTime = (e.Words + wordsPerMinute - 1) / wordsPerMinute
	}
	return e, nil
}

// Document parses the rendered body once and caches the result.
func (e *Essay) Document() (*goquery.Document, error) {
	if e.parsed != nil {
		return e.parsed, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(e.Body))
	if err != nil {
		return nil, err
	}
	e.parsed = doc
	return doc, nil
}

// splitFrontmatter separates a leading "---" delimited YAML block from
// the HTML body. Content without frontmatter is all body.
func splitFrontmatter(content string) (meta, body string) {
	trimmed := strings.TrimLeft(content, "\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return "", content
	}
	rest := trimmed[3:]
	if idx := strings.Index(rest, "\n---"); idx >= 0 {
		meta = strings.TrimSpace(rest[:idx])
		body = rest[idx+4:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		} else {
			body = ""
		}
		return meta, body
	}
	return "", content
}

func countWords(body string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return len(strings.Fields(body))
	}
	return len(strings.Fields(doc.Text()))
}

func parseDate(value string) time.Time {
	for _, layout := range []string{"2006-01-02", "2006-01", "January 2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
