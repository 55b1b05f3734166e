package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geostrata/categorize/internal/app"
	"github.com/geostrata/categorize/internal/core/config"
	"github.com/geostrata/categorize/internal/logger"
	"github.com/geostrata/categorize/internal/pipeline"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	target := flag.String("target", "", "target feature layer")
	division := flag.String("division", "", "division polygon layer")
	divisionField := flag.String("division-field", "", "category field on the division layer")
	output := flag.String("output", "", "output layer name")
	outputField := flag.String("output-field", "", "category field on the output (defaults to the division field)")
	overrun := flag.Bool("overrun", false, "copy whole intersecting features instead of clipping")
	uncategorized := flag.Bool("include-uncategorized", false, "carry leftovers with a null category")
	flag.Parse()

	if *outputField == "" {
		*outputField = *divisionField
	}

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "categorize",
	}, os.Stdout)

	zl.Info().
		Str("version", Version).
		Str("workspace", cfg.Workspace).
		Str("driver", string(cfg.Driver)).
		Msg("starting categorize")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if os.Getenv("METRICS_ENABLED") == "true" {
		addr := os.Getenv("METRICS_ADDR")
		if addr == "" {
			addr = ":9090"
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("metrics: listening on %s/metrics", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server exited: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	c, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Error().Err(err).Msg("setup failed")
		return 1
	}
	defer func() {
		if err := c.Close(); err != nil {
			zl.Warn().Err(err).Msg("close")
		}
	}()

	res, err := c.Categorize(ctx, pipeline.Params{
		Target:               *target,
		Division:             *division,
		DivisionField:        *divisionField,
		Output:               *output,
		OutputField:          *outputField,
		Overrun:              *overrun,
		IncludeUncategorized: *uncategorized,
	})
	if err != nil {
		zl.Error().Err(err).Msg("run failed")
		return 1
	}

	zl.Info().
		Str("output", res.Output).
		Str("field", res.Field.Name).
		Int("categories", len(res.Categories)).
		Int("features", res.Features).
		Msg("run complete")
	return 0
}
