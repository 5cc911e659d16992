package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/volleyplan/internal/generator"
	vpmcp "github.com/claude/volleyplan/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "volleyplan server URL (e.g. https://volleyplan.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("VOLLEYPLAN_API_KEY"), "API key for the server (default $VOLLEYPLAN_API_KEY)")
	coachID := flag.Int("coach", 1, "coach id tool calls act for")
	recent := flag.Int("recent", 3, "recent sessions feeding the anti-repeat penalty (0-3)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("volleyplan-mcp", Version)
		return
	}

	// stdout carries the MCP protocol
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" || *apiKey == "" {
		fmt.Fprintf(os.Stderr, "Usage: volleyplan-mcp -server <URL> -api-key <key> [-coach N]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	engine, err := generator.New()
	if err != nil {
		log.Error("failed to configure generator", "error", err)
		os.Exit(1)
	}

	ds := vpmcp.NewHTTPClient(*serverURL, *apiKey)
	s := vpmcp.New(ds, engine, vpmcp.Options{Version: Version, RecentSessions: *recent}, log)

	log.Info("volleyplan-mcp serving on stdio", "server", *serverURL, "coach_id", *coachID)
	err = mcpserver.ServeStdio(s, mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return vpmcp.WithCoachID(ctx, *coachID)
	}))
	if err != nil {
		log.Error("stdio server stopped", "error", err)
		os.Exit(1)
	}
}
