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

	"github.com/ducminhle1904/regime-backtester/cmd/common"
	"github.com/ducminhle1904/regime-backtester/internal/api"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "simserver: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("simserver", flag.ExitOnError)
	commonFlags := common.RegisterCommonFlags(fs)
	addr := fs.String("addr", "", "Listen address (default SIM_ADDR or :8080)")
	workers := fs.Int("workers", 0, "Batch workers (0 uses every CPU)")
	maxBatch := fs.Int("max-batch", api.DefaultMaxBatch, "Configs per batch request")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *commonFlags.Version {
		common.PrintVersion("simserver")
		return nil
	}

	// The server takes configs per request; the file config only checks
	// that the environment is sane at startup.
	log, _, err := commonFlags.Setup("simserver")
	if err != nil {
		return err
	}
	defer log.Close()

	if *addr == "" {
		*addr = envOr("SIM_ADDR", ":8080")
	}
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := api.NewServer(api.Options{
		Logger:   log.Logger,
		Workers:  *workers,
		MaxBatch: *maxBatch,
	}).HTTPServer(*addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", *addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
