package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rvbeek/repolens/internal/manifest"
	"github.com/rvbeek/repolens/internal/server"
	"github.com/rvbeek/repolens/internal/version"
)

func main() {
	initLogging()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = server.Run(ctx)
	case "parse":
		err = runParse(os.Args[2:])
	case "version":
		fmt.Println(version.Current())
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "repolens: %v\n", err)
		os.Exit(1)
	}
}

func initLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(os.Getenv("REPOLENS_LOG_LEVEL"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// runParse parses a manifest file (or stdin when no path is given) and
// prints the repository records with their derived links. It is the
// offline check for what the overlay would produce on a rendered page.
func runParse(args []string) error {
	var (
		r    io.Reader
		name string
	)
	switch len(args) {
	case 0:
		r = os.Stdin
		name = "stdin"
	case 1:
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open manifest: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
		name = args[0]
	default:
		return fmt.Errorf("parse takes at most one file argument")
	}

	lines, err := readLines(r)
	if err != nil {
		return fmt.Errorf("read manifest %s: %w", name, err)
	}

	records := manifest.Parse(lines)
	names := make([]string, 0, len(records))
	for n := range records {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		rec := records[n]
		if rec.Displayable() {
			fmt.Printf("%s\t%s\t%s\n", rec.Name, rec.Type, rec.URL)
			continue
		}
		fmt.Printf("%s\t%s\t(no link)\n", rec.Name, rec.Type)
	}
	return nil
}

func readLines(r io.Reader) ([]manifest.Line, error) {
	var lines []manifest.Line
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; sc.Scan(); i++ {
		lines = append(lines, manifest.Line{
			Key:  fmt.Sprintf("L%d", i),
			Text: sc.Text(),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `repolens - repository shortcuts for rendered manifest pages

Usage:
  repolens <command>

Commands:
  serve    Run the overlay backend service
  parse    Parse a manifest file and print repository links
  version  Print the version
  help     Show this help
`)
}
