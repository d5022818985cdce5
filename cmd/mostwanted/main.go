package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pevans/mostwanted/config"
	"github.com/pevans/mostwanted/logging"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	switch subcommand {
	case "scrape":
		handleScrape(args)
	case "load":
		handleLoad(args)
	case "serve":
		handleServe(args)
	case "sources":
		handleSources(args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("mostwanted - Most-wanted list scraper")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mostwanted <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scrape     Crawl one source and write its persons as JSON")
	fmt.Println("  load       Load a result file into the search index")
	fmt.Println("  serve      Serve the search index over HTTP")
	fmt.Println("  sources    List the configured sources")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  MOSTWANTED_CONFIG  Path to the YAML config file (default: mostwanted.yaml)")
	fmt.Println("  MOSTWANTED_DB      Path to the index database (default: index.dsn from config)")
}

// loadConfig reads and validates the config file at path.
func loadConfig(path string) *config.Config {
	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// validate exits when cfg cannot be used.
func validate(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger on stderr.
func newLogger(cfg *config.Config) *slog.Logger {
	logger, err := logging.New(os.Stderr, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return logger
}
