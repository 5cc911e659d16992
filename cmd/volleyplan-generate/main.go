package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/volleyplan/internal/generator"
	"github.com/claude/volleyplan/internal/history"
	"github.com/claude/volleyplan/internal/importer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code: 1 for I/O and setup failures, 2 for
// requests the engine rejects.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("volleyplan-generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	catalogPath := fs.String("catalog", "", "path to drill catalog JSON, optionally gzip-compressed (required)")
	requestPath := fs.String("request", "-", "path to generation request JSON, - for stdin")
	outPath := fs.String("out", "-", "where to write the session JSON, - for stdout")
	historyDir := fs.String("history", "", "history directory (default ~/.volleyplan)")
	noHistory := fs.Bool("no-history", false, "neither read nor record session history")
	coachID := fs.Int("coach", 1, "coach id the history is kept for")
	recent := fs.Int("recent", 3, "recent sessions feeding the anti-repeat penalty (0-3)")
	ruleset := fs.String("ruleset", "", "override the request ruleset")
	version := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *version {
		fmt.Fprintln(stdout, "volleyplan-generate", Version)
		return 0
	}

	// stdout may carry the session, so logs go to stderr
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *catalogPath == "" {
		fmt.Fprintf(stderr, "Usage: volleyplan-generate -catalog drills.json [-request req.json] [-out session.json] [-no-history]\n\n")
		fs.PrintDefaults()
		return 1
	}
	if *recent < 0 || *recent > 3 {
		fmt.Fprintf(stderr, "Error: -recent must be between 0 and 3\n")
		return 1
	}

	ctx := context.Background()

	data, err := importer.ReadCatalogFile(*catalogPath)
	if err != nil {
		log.Error("failed to read catalog", "error", err)
		return 1
	}
	records, err := importer.ParseRecords(data)
	if err != nil {
		log.Error("failed to parse catalog", "error", err)
		return 1
	}

	body, err := readInput(*requestPath, stdin)
	if err != nil {
		log.Error("failed to read request", "error", err)
		return 1
	}

	engine, err := generator.New()
	if err != nil {
		log.Error("failed to configure generator", "error", err)
		return 1
	}
	req, err := engine.ParseRequest(body)
	if err != nil {
		log.Error("invalid request", "error", err)
		return 2
	}
	if *ruleset != "" {
		req.Ruleset = *ruleset
	}

	// Open history
	var hist *history.Store
	if !*noHistory {
		dir := *historyDir
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				log.Error("failed to get home directory", "error", err)
				return 1
			}
			dir = filepath.Join(homeDir, ".volleyplan")
		}
		hist, err = history.Open(dir)
		if err != nil {
			log.Error("failed to open history", "error", err)
			return 1
		}
		defer hist.Close()

		if len(req.RecentDrillIDsBySession) == 0 && *recent > 0 {
			buckets, err := hist.RecentDrillBuckets(ctx, *coachID, *recent)
			if err != nil {
				log.Warn("history unavailable", "error", err)
			} else {
				req.RecentDrillIDsBySession = buckets
				log.Info("applied session history", "coach_id", *coachID, "sessions", len(buckets))
			}
		}
	}

	session, err := engine.GenerateFromRecords(records, req)
	if err != nil {
		log.Error("generation failed", "error", err)
		return 2
	}

	ch := session.Checks
	log.Info("session generated",
		"ruleset", session.Ruleset,
		"blocks", len(session.Blocks),
		"minutes_ok", ch.MinutesOK,
		"intensity_progression_ok", ch.IntensityProgressionOK,
		"primary_focus_ratio", ch.PrimaryFocusRatio,
		"must_include_ok", ch.MustIncludeOK,
	)
	if len(ch.MissingDomains) > 0 {
		log.Warn("domains not covered", "domains", ch.MissingDomains)
	}

	if hist != nil {
		hash := history.HashRequest(body)
		if n, err := hist.CountByRequest(ctx, *coachID, hash); err == nil && n > 0 {
			log.Info("request generated before", "times", n)
		}
		if _, err := hist.Record(ctx, *coachID, hash, session); err != nil {
			log.Warn("failed to record session", "error", err)
		}
	}

	if err := writeOutput(*outPath, stdout, session); err != nil {
		log.Error("failed to write session", "error", err)
		return 1
	}
	return 0
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, stdout io.Writer, v any) error {
	w := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
