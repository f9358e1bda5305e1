// Command fixturegen generates a synthetic nonprofit filing network for
// local development and demos.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/signalpot/entitygraph/internal/fixture"
)

func main() {
	cfg := fixture.DefaultConfig()
	var (
		orgs         = flag.Int("orgs", cfg.NumOrgs, "number of organizations to generate")
		maxRelations = flag.Int("max-relations", cfg.MaxRelations, "maximum extra relations disclosed per filing")
		cycleChance  = flag.Float64("cycle-chance", cfg.CycleChance, "probability of a back-edge to the root")
		amountChance = flag.Float64("amount-chance", cfg.AmountChance, "probability a relation discloses a transaction amount")
		orphanChance = flag.Float64("orphan-chance", cfg.OrphanChance, "probability an org has no filing on record")
		taxYear      = flag.Int("tax-year", cfg.TaxYear, "tax year stamped on generated filings")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", "data", "directory to write dataset.json and rendered filings")
		writeStdout  = flag.Bool("stdout", false, "write the dataset to stdout instead of files")
	)
	flag.Parse()

	genCfg := fixture.Config{
		NumOrgs:      *orgs,
		MaxRelations: *maxRelations,
		CycleChance:  clampProbability(*cycleChance),
		AmountChance: clampProbability(*amountChance),
		OrphanChance: clampProbability(*orphanChance),
		TaxYear:      *taxYear,
		Seed:         *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := fixture.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := fixture.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d organizations (root %s) into %s\n", len(dataset.Orgs), dataset.RootEIN, *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
