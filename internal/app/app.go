// Package app wires the configured workspace, engine, logger and optional
// event publisher into the single categorize operation.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/geostrata/categorize/internal/core/config"
	"github.com/geostrata/categorize/internal/engine/localengine"
	"github.com/geostrata/categorize/internal/events"
	"github.com/geostrata/categorize/internal/pipeline"
	"github.com/geostrata/categorize/internal/store"
	"github.com/geostrata/categorize/internal/store/memstore"
	"github.com/geostrata/categorize/internal/store/redisstore"
)

type Categorizer struct {
	runner *pipeline.Runner
	pub    *events.Publisher
	log    zerolog.Logger

	closers []func() error
}

func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Categorizer, error) {
	c := &Categorizer{log: log}

	var st store.Store
	switch cfg.Driver {
	case config.DriverRedis:
		rs, err := redisstore.New(ctx, cfg.RedisAddr, cfg.Workspace,
			redisstore.WithReadTimeout(cfg.RedisTimeout),
			redisstore.WithWriteTimeout(cfg.RedisTimeout))
		if err != nil {
			return nil, fmt.Errorf("workspace store: %w", err)
		}
		c.closers = append(c.closers, rs.Close)
		st = rs
	default:
		st = memstore.New()
	}

	eng, err := localengine.New(st, cfg.GeomCacheSize)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.runner = pipeline.New(eng, log)

	if cfg.Events.Enabled {
		pub, err := events.New(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.ClientID)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("event publisher: %w", err)
		}
		c.closers = append(c.closers, pub.Close)
		c.pub = pub
	}

	return c, nil
}

// Categorize runs the pipeline and, when configured, announces the finished
// run. Publish failures do not fail a run that already materialized its
// output.
func (c *Categorizer) Categorize(ctx context.Context, p pipeline.Params) (pipeline.Result, error) {
	res, err := c.runner.Run(ctx, p)
	if err != nil {
		return pipeline.Result{}, err
	}

	if c.pub != nil {
		ev := events.Event{
			Version:    1,
			Op:         events.OpCategorized,
			Layer:      res.Output,
			Field:      res.Field.Name,
			Categories: len(res.Categories),
			Features:   res.Features,
			RunToken:   res.Token,
			TS:         time.Now().UTC(),
		}
		if perr := c.pub.Publish(ctx, ev); perr != nil {
			c.log.Warn().Err(perr).Str("layer", res.Output).Msg("publish run event")
		}
	}
	return res, nil
}

func (c *Categorizer) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
