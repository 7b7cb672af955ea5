// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mnemos-dev/mnemos/internal/config"
	"github.com/mnemos-dev/mnemos/internal/index"
	"github.com/mnemos-dev/mnemos/internal/index/sqlite"
	"github.com/mnemos-dev/mnemos/internal/provider"
	openaiprov "github.com/mnemos-dev/mnemos/internal/provider/openai"
	"github.com/mnemos-dev/mnemos/internal/server"
	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

// Service holds all wired subsystems and manages their lifecycle.
type Service struct {
	Server *server.Server
	Index  *index.Store
}

// WireService creates all subsystems and wires them together.
func WireService(ctx context.Context, cfg *config.Config) (*Service, error) {
	// 1. Embedding provider with health tracking.
	embedder, err := openaiprov.New(openaiprov.Config{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		Model:      cfg.Provider.Model,
		Dimensions: cfg.Provider.Dimensions,
	})
	if err != nil {
		return nil, mnemoserr.Wrapf(err, mnemoserr.CodeCLISetupFailure, "creating embedding provider")
	}

	tracker, err := provider.NewHealthTracker(cfg.Provider.HealthCooldown)
	if err != nil {
		return nil, mnemoserr.Wrapf(err, mnemoserr.CodeCLISetupFailure, "creating health tracker")
	}
	tracked := provider.NewTracked(embedder, tracker)

	// 2. Durability backend.
	var persister index.Persister
	if cfg.Storage.Backend == "sqlite" {
		if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, mnemoserr.Wrapf(err, mnemoserr.CodeCLISetupFailure, "creating data directory")
			}
		}
		persister, err = sqlite.New(cfg.Storage.Path, cfg.Provider.Dimensions)
		if err != nil {
			return nil, mnemoserr.Wrapf(err, mnemoserr.CodeCLISetupFailure, "opening sqlite store")
		}
	}

	// 3. The index itself, loaded from persisted state.
	idx, err := index.Open(ctx, tracked, index.Options{
		Persister:        persister,
		Logger:           slog.Default(),
		EmbedTimeout:     cfg.Provider.Timeout,
		SegmentThreshold: &cfg.Search.SegmentThreshold,
		SegmentTopK:      cfg.Search.SegmentTopK,
	})
	if err != nil {
		if persister != nil {
			_ = persister.Close()
		}
		return nil, mnemoserr.Wrapf(err, mnemoserr.CodeCLISetupFailure, "opening index")
	}

	// 4. HTTP server with service adapters.
	services, err := server.NewServices(
		&indexServiceAdapter{idx: idx, clusterCfg: index.ClusterConfig{
			Seed:          cfg.Cluster.Seed,
			MaxIterations: cfg.Cluster.MaxIterations,
		}},
		&embeddingServiceAdapter{embedder: embedder, tracked: tracked},
	)
	if err != nil {
		_ = idx.Close()
		return nil, mnemoserr.Wrapf(err, mnemoserr.CodeCLISetupFailure, "creating services")
	}

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
	})
	if err != nil {
		_ = idx.Close()
		return nil, mnemoserr.Wrapf(err, mnemoserr.CodeCLISetupFailure, "creating server")
	}
	srv.RegisterServices(services)

	return &Service{Server: srv, Index: idx}, nil
}

// Close releases all wired subsystems.
func (s *Service) Close() error {
	return s.Index.Close()
}

// indexServiceAdapter exposes the index store as server.IndexService,
// carrying the configured k-means tuning into Cluster calls.
type indexServiceAdapter struct {
	idx        *index.Store
	clusterCfg index.ClusterConfig
}

func (a *indexServiceAdapter) Upsert(ctx context.Context, id int64, text string) error {
	return a.idx.Upsert(ctx, id, text)
}

func (a *indexServiceAdapter) Search(ctx context.Context, queryText string, limit int) ([]index.Match, error) {
	return a.idx.Search(ctx, queryText, limit)
}

func (a *indexServiceAdapter) SearchSegments(ctx context.Context, queryText string, segments []index.SegmentRecord) ([]index.SegmentMatch, error) {
	return a.idx.SearchSegments(ctx, queryText, segments)
}

func (a *indexServiceAdapter) Cluster(vectors [][]float32, numClusters int) ([]int, error) {
	return index.Cluster(vectors, numClusters, a.clusterCfg)
}

func (a *indexServiceAdapter) Rebuild(ctx context.Context, entries []index.RebuildEntry) (int, error) {
	return a.idx.Rebuild(ctx, entries)
}

func (a *indexServiceAdapter) GetAll() []index.MemoryRecord { return a.idx.GetAll() }
func (a *indexServiceAdapter) Count() int                   { return a.idx.Count() }
func (a *indexServiceAdapter) Generation() string           { return a.idx.Generation() }

// embeddingServiceAdapter exposes the tracked embedder as
// server.EmbeddingService.
type embeddingServiceAdapter struct {
	embedder *openaiprov.Embedder
	tracked  *provider.Tracked
}

func (a *embeddingServiceAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	return a.tracked.Embed(ctx, text)
}

func (a *embeddingServiceAdapter) Status(_ context.Context) server.ProviderStatus {
	return server.ProviderStatus{
		Provider:   a.embedder.Name(),
		Model:      a.embedder.Model(),
		Dimensions: a.embedder.Dimensions(),
		Health:     a.tracked.Metrics(),
	}
}
