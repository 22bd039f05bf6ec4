// Command benchserver serves a scoreboard status line for bench testing a
// board without the production dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/internal/hostlog"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/config"
)

func main() {
	addr := flag.String("addr", envOr("BENCH_ADDR", "0.0.0.0:9999"), "listen address")
	path := flag.String("path", config.DefaultPath, "status line path")
	flag.Parse()

	debug := hostlog.Debug()
	logger := hostlog.New(os.Stderr, "benchserver", debug)
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(newBench(), *path, logger),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("serving", "addr", *addr, "path", *path)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
