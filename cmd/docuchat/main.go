// File path: cmd/docuchat/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/docuchat-ai/docuchat/internal/api"
	"github.com/docuchat-ai/docuchat/internal/common"
)

const stuckDocumentAge = 10 * time.Minute

func main() {
	logger := common.Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("docuchat: .env file not loaded", "error", err)
	} else {
		logger.Info("docuchat: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	dbPath := flag.String("db", "", "path to the SQLite document database (overrides DOCSTORE_PATH)")
	watchdogInterval := flag.Duration("watchdog-interval", time.Minute, "interval between stuck-document sweeps")
	flag.Parse()

	logger.Info("docuchat: startup initiated", "addr", *addr)

	svc, err := buildServices(ctx, logger, *dbPath)
	if err != nil {
		logger.Error("docuchat: service construction failed", "error", err)
		fmt.Println("startup error:", err)
		os.Exit(1)
	}
	defer svc.close(logger)

	startWatchdog(ctx, logger, svc.store, *watchdogInterval, stuckDocumentAge)

	server, err := api.NewServer(svc.pipeline, svc.store)
	if err != nil {
		logger.Error("docuchat: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("docuchat: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("docuchat: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))

	httpServer := &http.Server{Addr: *addr, Handler: server}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("docuchat: shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("docuchat: shutdown incomplete", "error", err)
		} else {
			logger.Info("docuchat: shutdown complete")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("docuchat: server stopped", "error", err)
			fmt.Println("server stopped:", err)
		}
	}
}
