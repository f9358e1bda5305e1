package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const datasetFile = "dataset.json"

// WriteDataset persists the dataset to a directory: dataset.json plus one
// rendered filing per org under filings/, matching the naming convention of
// the real store for easy inspection.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "filings"), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	raw, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, datasetFile), raw, 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}

	names := make(map[string]string, len(dataset.Orgs))
	for _, org := range dataset.Orgs {
		names[org.EIN] = org.Name
	}
	for _, org := range dataset.Orgs {
		if org.ObjectID == "" {
			continue
		}
		path := filepath.Join(dir, "filings", org.ObjectID+"_public.xml")
		if err := os.WriteFile(path, RenderFiling(org, names), 0o644); err != nil {
			return fmt.Errorf("write filing %s: %w", org.ObjectID, err)
		}
	}
	return nil
}

// LoadDataset reads a dataset previously written by WriteDataset.
func LoadDataset(dir string) (Dataset, error) {
	raw, err := os.ReadFile(filepath.Join(dir, datasetFile))
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	var dataset Dataset
	if err := json.Unmarshal(raw, &dataset); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset: %w", err)
	}
	if len(dataset.Orgs) == 0 {
		return Dataset{}, fmt.Errorf("dataset %s contains no orgs", dir)
	}
	return dataset, nil
}
