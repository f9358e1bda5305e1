// Command resolve performs a one-shot graph resolution and prints the result
// as JSON. It talks to the live upstreams by default; -fixture points it at a
// generated dataset instead, which keeps development entirely offline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalpot/entitygraph/internal/config"
	"github.com/signalpot/entitygraph/internal/domain"
	"github.com/signalpot/entitygraph/internal/fixture"
	"github.com/signalpot/entitygraph/internal/graphstore"
	"github.com/signalpot/entitygraph/internal/logging"
	"github.com/signalpot/entitygraph/internal/resolver"
	"github.com/signalpot/entitygraph/internal/upstream"
)

func main() {
	var (
		ein        = flag.String("ein", "", "seed EIN, with or without the dash (required unless -fixture supplies a root)")
		depth      = flag.Int("depth", 1, "traversal depth limit")
		fixtureDir = flag.String("fixture", "", "directory holding a generated dataset; resolves against it instead of the live upstreams")
		archive    = flag.Bool("archive", false, "mirror the resolved graph into the configured archive")
		pretty     = flag.Bool("pretty", true, "indent the JSON output")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "resolve")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		metadata upstream.MetadataAPI
		search   upstream.SearchIndex
		store    upstream.FilingStore
	)
	seed := *ein
	if *fixtureDir != "" {
		dataset, err := fixture.LoadDataset(*fixtureDir)
		if err != nil {
			logger.Error("failed to load fixture dataset", "dir", *fixtureDir, "error", err)
			os.Exit(1)
		}
		metadata, search, store = dataset.Upstreams()
		if seed == "" {
			seed = dataset.RootEIN
		}
	} else {
		transport := upstream.NewTransport(cfg.Upstream, nil)
		metadata = upstream.NewProPublicaClient(transport, cfg.Upstream.MetadataBaseURL)
		search = upstream.NewEFTSClient(transport, cfg.Upstream.SearchBaseURL)
		store = upstream.NewS3FilingStore(transport, cfg.Upstream.FilingStoreBaseURL)
	}
	if seed == "" {
		fmt.Fprintln(os.Stderr, "an -ein is required")
		os.Exit(2)
	}

	svc := resolver.NewService(metadata, search, store, cfg.Resolver, logger, nil)

	start := time.Now()
	graph, err := svc.ResolveGraph(ctx, seed, *depth)
	if err != nil {
		logger.Error("resolution failed", "ein", seed, "error", err)
		os.Exit(1)
	}
	logger.Info("resolution complete",
		"ein", domain.FormatEIN(graph.RootEIN),
		"nodes", len(graph.NodeOrder),
		"edges", len(graph.Edges),
		"truncated", graph.Truncated,
		"duration", time.Since(start).String(),
	)

	if *archive {
		if err := archiveGraph(ctx, cfg, graph); err != nil {
			logger.Error("graph archive failed", "error", err)
			os.Exit(1)
		}
		logger.Info("graph archived", "uri", cfg.Archive.URI)
	}

	encoder := json.NewEncoder(os.Stdout)
	if *pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(graph); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write graph: %v\n", err)
		os.Exit(1)
	}
}

func archiveGraph(ctx context.Context, cfg config.Config, graph domain.Graph) error {
	client, err := graphstore.NewNeo4jClient(ctx, graphstore.Options{
		URI:            cfg.Archive.URI,
		Database:       cfg.Archive.Database,
		Username:       cfg.Archive.Username,
		Password:       cfg.Archive.Password,
		MaxConnections: cfg.Archive.MaxConnections,
	})
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	return graphstore.New(client).ArchiveGraph(ctx, graph)
}
