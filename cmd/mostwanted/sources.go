package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pevans/mostwanted/config"
	"github.com/pevans/mostwanted/sources"
)

func handleSources(args []string) {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	configPath := fs.String("config", getEnv("MOSTWANTED_CONFIG", config.DefaultConfigFile), "Path to config file (MOSTWANTED_CONFIG)")
	sourcesFile := fs.String("sources", "", "Path to the source table CSV")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *sourcesFile != "" {
		cfg.SourcesFile = *sourcesFile
	}

	table, err := loadSourceTable(cfg.SourcesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(table) == 0 {
		fmt.Println("No sources configured.")
		return
	}

	fmt.Printf("%-12s %-40s %s\n", "CODE", "NAME", "URL")
	fmt.Println(strings.Repeat("-", 100))

	for _, source := range table {
		name := source.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Printf("%-12s %-40s %s\n", source.Code, name, source.URL)
	}
}

// loadSourceTable reads every row of the source table at path.
func loadSourceTable(path string) ([]sources.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source table: %w", err)
	}
	defer f.Close()

	return sources.LoadCSV(f)
}

// knownCodes lists the source codes in the table at path, in file order.
// It returns nil when the table cannot be read.
func knownCodes(path string) []string {
	table, err := loadSourceTable(path)
	if err != nil {
		return nil
	}

	codes := make([]string, 0, len(table))
	for _, source := range table {
		codes = append(codes, source.Code)
	}
	return codes
}
