/*
Package cli provides the advisor command-line interface.

Commands cover the observability surface of the learning system (status,
top policies, episodes, export) and a recommend command for exercising the
selector directly.
*/
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/toolsmith-ai/advisor/internal/catalog"
	"github.com/toolsmith-ai/advisor/internal/config"
	"github.com/toolsmith-ai/advisor/internal/storage"
)

// openStorage opens the configured database, ready for queries.
func openStorage(cfg *config.Config) (*storage.SQLiteStorage, error) {
	var store *storage.SQLiteStorage
	if cfg.Database.Path != "" {
		store = storage.NewStorageAt(cfg.Database.Path)
	} else {
		store = storage.NewStorage()
	}

	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// buildCatalog registers the configured tools into a fresh catalog.
func buildCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.New()
	if err != nil {
		return nil, err
	}

	for _, tool := range cfg.Tools {
		if err := cat.Register(catalog.Tool{Name: tool.Name, Description: tool.Description}); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// formatJSON pretty-prints JSON for export.
func formatJSON(data interface{}) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
