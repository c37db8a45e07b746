// Command engagic wires together the ingestion pipeline's packages and
// exposes the four operations spec.md §6 names as CLI surface: poll,
// queue reset/stats, and health. It deliberately stops at liveness/ops
// endpoints and does not expose the result-reading HTTP API.
//
// Grounded on the teacher's cmd/tarsy/main.go (config → store → services →
// gin wiring) and on vjache-cie's cmd/cie/main.go subcommand-dispatch shape
// (top-level pflag.Parse, then switch on the first positional argument).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/engagic/pipeline/pkg/config"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to the directory holding engagic.yaml")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("no .env file loaded", "path", envPath, "error", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: engagic [--config-dir DIR] <poll|queue|health> ...")
		os.Exit(1)
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("loading configuration: %v", err))
		os.Exit(1)
	}

	ctx := context.Background()
	command, cmdArgs := args[0], args[1:]

	var runErr error
	switch command {
	case "poll":
		runErr = runPoll(ctx, cfg, cmdArgs)
	case "queue":
		runErr = runQueue(ctx, cfg, cmdArgs)
	case "health":
		runErr = runHealth(ctx, cfg, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(1)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, color.RedString("%v", runErr))
		os.Exit(1)
	}
}
