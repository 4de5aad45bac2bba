package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitLoggingLevelFromEnv(t *testing.T) {
	cases := []struct {
		name    string
		env     string
		debugOn bool
		infoOn  bool
		warnOn  bool
		errorOn bool
	}{
		{name: "debug", env: "debug", debugOn: true, infoOn: true, warnOn: true, errorOn: true},
		{name: "warn", env: "warn", debugOn: false, infoOn: false, warnOn: true, errorOn: true},
		{name: "error", env: "error", debugOn: false, infoOn: false, warnOn: false, errorOn: true},
		{name: "default", env: "", debugOn: false, infoOn: true, warnOn: true, errorOn: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("REPOLENS_LOG_LEVEL", tc.env)
			initLogging()
			h := slog.Default().Handler()
			ctx := context.Background()
			if got := h.Enabled(ctx, slog.LevelDebug); got != tc.debugOn {
				t.Fatalf("debug enabled=%v want %v", got, tc.debugOn)
			}
			if got := h.Enabled(ctx, slog.LevelInfo); got != tc.infoOn {
				t.Fatalf("info enabled=%v want %v", got, tc.infoOn)
			}
			if got := h.Enabled(ctx, slog.LevelWarn); got != tc.warnOn {
				t.Fatalf("warn enabled=%v want %v", got, tc.warnOn)
			}
			if got := h.Enabled(ctx, slog.LevelError); got != tc.errorOn {
				t.Fatalf("error enabled=%v want %v", got, tc.errorOn)
			}
		})
	}
}

func TestUsageWritesExpectedText(t *testing.T) {
	out := captureStderr(t, usage)
	if !strings.Contains(out, "repolens - repository shortcuts") {
		t.Fatalf("missing usage title, got: %q", out)
	}
	if !strings.Contains(out, "serve") || !strings.Contains(out, "parse") {
		t.Fatalf("missing commands in usage: %q", out)
	}
}

func TestRunParsePrintsRepositoryLinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.repos")
	content := `repositories:
  pkg/foo:
    type: git
    url: https://github.com/org/foo.git
    version: main
  tools/hg-thing:
    type: hg
    url: https://example.org/hg/thing
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	out := captureStdout(t, func() {
		if err := runParse([]string{path}); err != nil {
			t.Errorf("runParse: %v", err)
		}
	})

	if !strings.Contains(out, "pkg/foo\tgit\thttps://github.com/org/foo/tree/main") {
		t.Fatalf("missing git repository line, got: %q", out)
	}
	if !strings.Contains(out, "tools/hg-thing\thg\t(no link)") {
		t.Fatalf("missing non-git repository line, got: %q", out)
	}
}

func TestRunParseRejectsExtraArgs(t *testing.T) {
	if err := runParse([]string{"a", "b"}); err == nil {
		t.Fatalf("expected error for extra args")
	}
}

func TestRunParseMissingFile(t *testing.T) {
	if err := runParse([]string{filepath.Join(t.TempDir(), "nope.repos")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stderr = w
	done := make(chan string, 1)
	go func() {
		raw, _ := io.ReadAll(r)
		done <- string(raw)
	}()
	fn()
	_ = w.Close()
	os.Stderr = orig
	return <-done
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	done := make(chan string, 1)
	go func() {
		raw, _ := io.ReadAll(r)
		done <- string(raw)
	}()
	fn()
	_ = w.Close()
	os.Stdout = orig
	return <-done
}
