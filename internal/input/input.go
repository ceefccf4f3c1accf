// Package input reads the texts the driver annotates: plain text, HTML and
// JSONL files.
package input

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Item is one text to annotate.
type Item struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Format selects how a file is decoded.
type Format string

const (
	FormatAuto  Format = ""
	FormatText  Format = "text"
	FormatHTML  Format = "html"
	FormatJSONL Format = "jsonl"
)

// Detect picks a format from the file extension.
func Detect(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	case ".jsonl", ".ndjson":
		return FormatJSONL
	}
	return FormatText
}

// LoadFile reads the items of one file. JSONL lines that fail to decode are
// skipped with a warning; a JSONL file without any valid line is an error.
func LoadFile(path string, format Format, log *zap.Logger) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return Decode(path, data, format, log)
}

// LoadReader reads a single item from r.
func LoadReader(source string, r io.Reader, format Format, log *zap.Logger) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return Decode(source, data, format, log)
}

// Decode turns raw bytes into items.
func Decode(source string, data []byte, format Format, log *zap.Logger) ([]Item, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if format == FormatAuto {
		format = Detect(source)
	}

	switch format {
	case FormatText:
		return []Item{{Source: source, Text: string(data)}}, nil
	case FormatHTML:
		return []Item{{Source: source, Text: StripHTML(string(data))}}, nil
	case FormatJSONL:
		return decodeJSONL(source, data, log)
	}
	return nil, fmt.Errorf("%s: unknown format %q", source, format)
}

func decodeJSONL(source string, data []byte, log *zap.Logger) ([]Item, error) {
	var items []Item
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			log.Warn("skipping malformed JSON line",
				zap.String("source", source),
				zap.Int("line", i+1),
				zap.Error(err))
			continue
		}
		if item.Source == "" {
			item.Source = fmt.Sprintf("%s:%d", source, i+1)
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid items found in %s", source)
	}
	return items, nil
}

// StripHTML returns the visible text of an HTML document. Script and style
// contents are dropped; block elements end with a newline.
func StripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		// Fallback to string if parsing fails
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			buf.WriteString("\n")
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "tr": true, "title": true,
}
