package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pevans/mostwanted/config"
	"github.com/pevans/mostwanted/index"
	"github.com/pevans/mostwanted/persons"
)

func handleLoad(args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	configPath := fs.String("config", getEnv("MOSTWANTED_CONFIG", config.DefaultConfigFile), "Path to config file (MOSTWANTED_CONFIG)")
	dbPath := fs.String("db", os.Getenv("MOSTWANTED_DB"), "Path to index database (MOSTWANTED_DB)")
	scheme := fs.String("scheme", "", "Document ID scheme: stable or positional")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: result file is required\n")
		fmt.Fprintf(os.Stderr, "Usage: mostwanted load [-db file] [-scheme stable|positional] <file.json>\n")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	if *dbPath != "" {
		cfg.Index.DSN = *dbPath
	}
	if *scheme != "" {
		cfg.Index.IDScheme = *scheme
	}
	validate(cfg)

	for _, path := range fs.Args() {
		n, err := runLoad(cfg.Index.DSN, index.IDScheme(cfg.Index.IDScheme), path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("✓ Indexed %d persons from %s\n", n, path)
	}
}

// runLoad indexes the result file at path into the database at dbPath.
func runLoad(dbPath string, scheme index.IDScheme, path string) (int, error) {
	if _, err := index.ParseIDScheme(string(scheme)); err != nil {
		return 0, err
	}

	result, err := persons.Load(path)
	if err != nil {
		return 0, err
	}

	store, err := index.NewStore(dbPath)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	return store.Load(result, scheme)
}
