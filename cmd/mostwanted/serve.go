package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/mostwanted/config"
	"github.com/pevans/mostwanted/index"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", getEnv("MOSTWANTED_CONFIG", config.DefaultConfigFile), "Path to config file (MOSTWANTED_CONFIG)")
	dbPath := fs.String("db", os.Getenv("MOSTWANTED_DB"), "Path to index database (MOSTWANTED_DB)")
	addr := fs.String("addr", "localhost:8080", "Listen address")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *dbPath != "" {
		cfg.Index.DSN = *dbPath
	}
	validate(cfg)

	logger := newLogger(cfg)
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := index.NewStore(cfg.Index.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open index: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	server := &http.Server{
		Addr:    *addr,
		Handler: index.NewAPIServer(store).SetupRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("serving index", "addr", *addr, "db", cfg.Index.DSN)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
