package manifest

import (
	"log/slog"
	"regexp"
	"strings"
)

// RepositoriesHeader is the outer grouping key of a repos file. When it is
// the first semantic line of the rendered document it is structural, not a
// repository entry.
const RepositoriesHeader = "repositories:"

var blockStartPattern = regexp.MustCompile(`^[\w./-]+:\s*(?:#.*)?$`)

// Line is one rendered source line of a repos file as exposed by the host
// page. Key identifies the rendered line element and is only stable within
// one render pass; a fresh snapshot invalidates all previous keys.
type Line struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Record is one parsed repository entry. For displayable records URL holds
// the final navigable HTTPS link, version suffix included.
type Record struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	URL     string `json:"url"`
	Version string `json:"version,omitempty"`
	LineKey string `json:"line_key,omitempty"`
}

// Displayable reports whether the record is eligible for a shortcut
// control: a git-family VCS type and a usable URL.
func (r Record) Displayable() bool {
	return strings.Contains(r.Type, "git") && r.URL != ""
}

// Parse segments the rendered lines into repository blocks and extracts one
// Record per block. It is a pure function over its input: parsing the same
// line sequence twice yields identical mappings. The first block accepted
// under a name wins; later blocks with the same name are discarded whole.
func Parse(lines []Line) map[string]Record {
	records := make(map[string]Record)

	var block []Line
	seenContent := false
	for _, line := range lines {
		text := strings.TrimSpace(line.Text)
		firstContent := !seenContent && text != ""
		if text != "" {
			seenContent = true
		}

		if !isBlockStart(text) {
			if len(block) > 0 {
				block = append(block, Line{Key: line.Key, Text: text})
			}
			continue
		}

		// The outer grouping header opens the document, not a block.
		if firstContent && text == RepositoriesHeader {
			continue
		}

		closeBlock(records, block)
		block = []Line{{Key: line.Key, Text: text}}
	}
	closeBlock(records, block)

	return records
}

func isBlockStart(trimmed string) bool {
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return false
	}
	return blockStartPattern.MatchString(trimmed)
}

func closeBlock(records map[string]Record, block []Line) {
	if len(block) == 0 {
		return
	}

	head := stripComment(block[0].Text)
	idx := strings.IndexByte(head, ':')
	if idx < 0 {
		return
	}
	name := strings.TrimSpace(head[:idx])
	if name == "" {
		return
	}
	if _, exists := records[name]; exists {
		slog.Debug("duplicate repository block ignored", "name", name)
		return
	}

	rec := Record{Name: name, LineKey: block[0].Key}
	for _, line := range block[1:] {
		text := line.Text
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(text, "type:"):
			rec.Type = fieldValue(text, "type:")
		case strings.HasPrefix(text, "url:"):
			rec.URL = normalizeURL(name, fieldValue(text, "url:"))
		case strings.HasPrefix(text, "version:"):
			rec.Version = fieldValue(text, "version:")
		}
	}

	if rec.Type == "" || rec.URL == "" {
		slog.Debug("repository block missing type or url", "name", name)
		return
	}
	if rec.Displayable() {
		rec.URL = LinkURL(rec.URL, rec.Version)
	}
	records[name] = rec
}

// fieldValue extracts the value after a field prefix, up to a trailing
// comment, trimmed.
func fieldValue(text, prefix string) string {
	return strings.TrimSpace(stripComment(strings.TrimPrefix(text, prefix)))
}

func stripComment(text string) string {
	if idx := strings.IndexByte(text, '#'); idx >= 0 {
		text = text[:idx]
	}
	return text
}

func normalizeURL(name, raw string) string {
	if raw == "" || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if !strings.HasPrefix(raw, "git@") {
		return raw
	}
	converted, ok := ConvertSSHURL(raw)
	if !ok {
		slog.Warn("unrecognized SSH repository URL dropped", "name", name, "url", raw)
		return ""
	}
	return converted
}
