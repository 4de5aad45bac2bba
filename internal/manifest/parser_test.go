package manifest

import (
	"fmt"
	"reflect"
	"testing"
)

func numberedLines(texts ...string) []Line {
	lines := make([]Line, 0, len(texts))
	for i, t := range texts {
		lines = append(lines, Line{Key: fmt.Sprintf("L%d", i), Text: t})
	}
	return lines
}

func TestParseSingleRepositoryWithBranch(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/foo:",
		"  type: git",
		"  url: git@github.com:org/foo.git",
		"  version: main",
	))

	rec, ok := records["pkg/foo"]
	if !ok {
		t.Fatalf("pkg/foo not parsed, got: %+v", records)
	}
	if rec.Type != "git" {
		t.Fatalf("unexpected type: %q", rec.Type)
	}
	if rec.URL != "https://github.com/org/foo/tree/main" {
		t.Fatalf("unexpected url: %q", rec.URL)
	}
	if rec.Version != "main" {
		t.Fatalf("unexpected version: %q", rec.Version)
	}
	if rec.LineKey != "L0" {
		t.Fatalf("unexpected line key: %q", rec.LineKey)
	}
}

func TestParseNoVersionStripsGitSuffix(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/bar:",
		"  type: git",
		"  url: https://github.com/org/bar.git",
	))

	rec, ok := records["pkg/bar"]
	if !ok {
		t.Fatalf("pkg/bar not parsed, got: %+v", records)
	}
	if rec.URL != "https://github.com/org/bar" {
		t.Fatalf("unexpected url: %q", rec.URL)
	}
	if rec.Version != "" {
		t.Fatalf("expected no version, got: %q", rec.Version)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	lines := numberedLines(
		"repositories:",
		"  pkg/foo:",
		"    type: git",
		"    url: https://github.com/org/foo.git",
		"    version: main",
		"  pkg/bar:",
		"    type: git",
		"    url: git@github.com:org/bar.git",
	)

	first := Parse(lines)
	second := Parse(lines)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parse not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(first), first)
	}
}

func TestParseFirstDuplicateWins(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/foo:",
		"  type: git",
		"  url: https://github.com/org/first.git",
		"pkg/foo:",
		"  type: git",
		"  url: https://github.com/org/second.git",
	))

	rec, ok := records["pkg/foo"]
	if !ok {
		t.Fatalf("pkg/foo not parsed")
	}
	if rec.URL != "https://github.com/org/first" {
		t.Fatalf("duplicate block overwrote first: %q", rec.URL)
	}
	if rec.LineKey != "L0" {
		t.Fatalf("duplicate block replaced line key: %q", rec.LineKey)
	}
}

func TestParseRepositoriesHeaderIsNotABlock(t *testing.T) {
	records := Parse(numberedLines(
		"repositories:",
		"  pkg/foo:",
		"    type: git",
		"    url: https://github.com/org/foo.git",
	))

	if _, ok := records["repositories"]; ok {
		t.Fatalf("outer header parsed as a repository: %+v", records)
	}
	if _, ok := records["pkg/foo"]; !ok {
		t.Fatalf("pkg/foo missing: %+v", records)
	}
}

func TestParseHeaderAfterBlankLinesStillSkipped(t *testing.T) {
	records := Parse(numberedLines(
		"",
		"   ",
		"repositories:",
		"  pkg/foo:",
		"    type: git",
		"    url: https://github.com/org/foo.git",
	))

	if _, ok := records["repositories"]; ok {
		t.Fatalf("outer header parsed as a repository")
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got: %+v", records)
	}
}

func TestParseHeaderMidDocumentIsARegularBlock(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/foo:",
		"  type: git",
		"  url: https://github.com/org/foo.git",
		"repositories:",
		"  type: git",
		"  url: https://github.com/org/outer.git",
	))

	if _, ok := records["repositories"]; !ok {
		t.Fatalf("mid-document header should parse as an ordinary block: %+v", records)
	}
}

func TestParseNonGitTypeKeptButNotDisplayable(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/legacy:",
		"  type: hg",
		"  url: https://example.com/legacy",
	))

	rec, ok := records["pkg/legacy"]
	if !ok {
		t.Fatalf("hg record should stay in the raw mapping")
	}
	if rec.Displayable() {
		t.Fatalf("hg record must not be displayable: %+v", rec)
	}
	if rec.URL != "https://example.com/legacy" {
		t.Fatalf("non-git url should stay raw: %q", rec.URL)
	}
}

func TestParseCommentAndBlankLineTolerance(t *testing.T) {
	plain := Parse(numberedLines(
		"pkg/foo:",
		"  type: git",
		"  url: https://github.com/org/foo.git",
	))
	noisy := Parse(numberedLines(
		"pkg/foo:",
		"  type: git",
		"",
		"  # a comment",
		"  url: https://github.com/org/foo.git",
	))

	if !reflect.DeepEqual(stripKeys(plain), stripKeys(noisy)) {
		t.Fatalf("comment/blank lines changed the result:\nplain: %+v\nnoisy: %+v", plain, noisy)
	}
}

func TestParseInlineCommentsStripped(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/foo: # the main package",
		"  type: git # vcs",
		"  url: https://github.com/org/foo.git # upstream",
		"  version: main # default",
	))

	rec, ok := records["pkg/foo"]
	if !ok {
		t.Fatalf("pkg/foo not parsed: %+v", records)
	}
	if rec.Type != "git" || rec.Version != "main" {
		t.Fatalf("inline comments leaked into fields: %+v", rec)
	}
	if rec.URL != "https://github.com/org/foo/tree/main" {
		t.Fatalf("unexpected url: %q", rec.URL)
	}
}

func TestParseDiscardsIncompleteBlocks(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/empty:",
		"pkg/nourl:",
		"  type: git",
		"pkg/ok:",
		"  type: git",
		"  url: https://github.com/org/ok.git",
	))

	if len(records) != 1 {
		t.Fatalf("expected only pkg/ok, got: %+v", records)
	}
	if _, ok := records["pkg/ok"]; !ok {
		t.Fatalf("pkg/ok missing: %+v", records)
	}
}

func TestParseEmptyVersionMeansDefaultBranch(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/foo:",
		"  type: git",
		"  url: https://github.com/org/foo.git",
		"  version:   ",
	))

	rec := records["pkg/foo"]
	if rec.URL != "https://github.com/org/foo" {
		t.Fatalf("empty version should leave base url: %q", rec.URL)
	}
}

func TestParseLinesBeforeFirstBlockDiscarded(t *testing.T) {
	records := Parse(numberedLines(
		"  type: git",
		"  url: https://github.com/org/stray.git",
		"pkg/foo:",
		"  type: git",
		"  url: https://github.com/org/foo.git",
	))

	if len(records) != 1 {
		t.Fatalf("stray leading lines should be discarded: %+v", records)
	}
}

func TestParseUnknownFieldsIgnored(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/foo:",
		"  type: git",
		"  shallow: true",
		"  url: https://github.com/org/foo.git",
	))

	if _, ok := records["pkg/foo"]; !ok {
		t.Fatalf("unknown field broke the block: %+v", records)
	}
}

func TestParseBadSSHURLDropsRecord(t *testing.T) {
	records := Parse(numberedLines(
		"pkg/foo:",
		"  type: git",
		"  url: git@github.com",
	))

	if len(records) != 0 {
		t.Fatalf("unconvertible SSH url should drop the record: %+v", records)
	}
}

func stripKeys(in map[string]Record) map[string]Record {
	out := make(map[string]Record, len(in))
	for name, rec := range in {
		rec.LineKey = ""
		out[name] = rec
	}
	return out
}
