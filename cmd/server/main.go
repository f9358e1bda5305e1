package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalpot/entitygraph/internal/config"
	"github.com/signalpot/entitygraph/internal/graphstore"
	"github.com/signalpot/entitygraph/internal/logging"
	"github.com/signalpot/entitygraph/internal/metrics"
	"github.com/signalpot/entitygraph/internal/resolver"
	"github.com/signalpot/entitygraph/internal/server"
	"github.com/signalpot/entitygraph/internal/upstream"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
	)
	if cfg.HTTP.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(registry)
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	transport := upstream.NewTransport(cfg.Upstream, m)
	metadata := upstream.NewProPublicaClient(transport, cfg.Upstream.MetadataBaseURL)
	search := upstream.NewEFTSClient(transport, cfg.Upstream.SearchBaseURL)
	store := upstream.NewS3FilingStore(transport, cfg.Upstream.FilingStoreBaseURL)

	resolverService := resolver.NewService(metadata, search, store, cfg.Resolver, logger, m)

	var (
		archiveClient graphstore.Client
		archiveRepo   *graphstore.Repository
	)
	if cfg.Archive.Enabled {
		archiveClient, err = buildArchiveClient(ctx, cfg)
		if err != nil {
			logger.Error("failed to create archive client", "error", err)
			os.Exit(1)
		}
		archiveRepo = graphstore.New(archiveClient)
		logger.Info("graph archive enabled", "uri", cfg.Archive.URI)
	}
	defer func() {
		if archiveClient != nil {
			if err := archiveClient.Close(context.Background()); err != nil {
				logger.Warn("closing archive client failed", "error", err)
			}
		}
	}()

	probe := upstream.ConnectivityProbe{
		Metadata: metadata,
		Search:   search,
		Store:    store,
	}
	apiHandlers := server.NewAPIHandlers(logger, resolverService, metadata, probe, archiveRepo)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.ArchiveHealthService{Client: archiveClient},
		API:              apiHandlers,
		Metrics:          metricsHandler,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildArchiveClient(ctx context.Context, cfg config.Config) (graphstore.Client, error) {
	if cfg.Archive.URI == "" {
		return nil, graphstore.ErrMissingURI
	}

	opts := graphstore.Options{
		URI:            cfg.Archive.URI,
		Database:       cfg.Archive.Database,
		Username:       cfg.Archive.Username,
		Password:       cfg.Archive.Password,
		MaxConnections: cfg.Archive.MaxConnections,
	}
	return graphstore.NewNeo4jClient(ctx, opts)
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
