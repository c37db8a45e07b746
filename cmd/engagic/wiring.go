package main

import (
	"context"
	"fmt"
	"os"

	"github.com/engagic/pipeline/pkg/config"
	"github.com/engagic/pipeline/pkg/conductor"
	"github.com/engagic/pipeline/pkg/extract"
	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/llm"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/pdfchunk"
	"github.com/engagic/pipeline/pkg/processor"
	"github.com/engagic/pipeline/pkg/providerlimit"
	"github.com/engagic/pipeline/pkg/queue"
	"github.com/engagic/pipeline/pkg/ratelimit"
	"github.com/engagic/pipeline/pkg/store"
	"github.com/engagic/pipeline/pkg/vendoradapter"
)

// pipeline bundles every wired component a subcommand might need, built
// once from the resolved *config.Config — the engagic analogue of the
// teacher's main.go local variables, pulled into its own type so every
// subcommand file can share the wiring without repeating it.
type pipeline struct {
	cfg   *config.Config
	store *store.Store
	queue *queue.Queue

	registry  *vendoradapter.Registry
	processor *processor.Processor
	conductor *conductor.Conductor
}

func wire(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	st, err := store.Open(ctx, store.Config{
		Path:            cfg.StorePath,
		MaxOpenConns:    1,
		ConnMaxLifetime: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	for _, city := range cfg.Cities {
		err := st.UpsertCity(ctx, models.City{
			Banana:      city.Banana,
			DisplayName: city.DisplayName,
			State:       city.State,
			Vendor:      models.Vendor(city.Vendor),
			Slug:        city.Slug,
			Status:      models.CityStatusActive,
		})
		if err != nil {
			return nil, fmt.Errorf("seeding city %s: %w", city.Banana, err)
		}
	}

	q := queue.New(st.SQLX(), queue.Config{
		MaxAttempts:     cfg.MaxAttempts,
		LeaseDuration:   cfg.LeaseDuration,
		RetentionWindow: cfg.RetentionWindow,
	})

	fetcher := httpfetch.New(cfg.UserAgent, httpfetch.ListingTimeout)
	limiter := ratelimit.New(cfg.RateLimiterSpacing)
	registry := vendoradapter.NewRegistry(fetcher, limiter)

	tokens := make(conductor.LegistarTokens, len(cfg.Cities))
	for _, city := range cfg.Cities {
		if city.LegistarToken != "" {
			tokens[city.Banana] = city.LegistarToken
		}
	}

	chunker := &pdfchunk.Chunker{MaxBytes: cfg.ChunkMaxBytes, MaxPages: cfg.ChunkMaxPages}
	extractor := extract.NewFitzExtractor()
	providerLimiter := providerlimit.New()
	llmClient := llm.NewHTTPClient(getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"), os.Getenv("ANTHROPIC_API_KEY"))

	proc := processor.New(st, q, fetcher, chunker, extractor, nil, llmClient, providerLimiter, cfg.ProviderModel, registry)

	cond := conductor.New(st, q, registry, proc, tokens, conductor.Config{
		PollInterval:  cfg.PollInterval,
		DispatchBatch: cfg.DispatchBatch,
		WorkerCount:   cfg.WorkerCount,
		GCInterval:    cfg.GCInterval,
	})

	return &pipeline{
		cfg:       cfg,
		store:     st,
		queue:     q,
		registry:  registry,
		processor: proc,
		conductor: cond,
	}, nil
}
