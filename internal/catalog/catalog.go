/*
Package catalog maintains the registered tool catalog.

The catalog is the static list of tools the selector chooses from. Tool
names are never interpreted semantically by the learning engine; the
descriptions exist only for the search surface, which is backed by an
in-memory Bleve index.
*/
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Tool is one registered tool.
type Tool struct {
	// Name is the unique tool name.
	Name string `json:"name"`

	// Description is a human-readable description, used for search only.
	Description string `json:"description"`
}

// Catalog holds the registered tools and a search index over them.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Tool
	index bleve.Index
}

// New creates an empty catalog with an in-memory search index.
func New() (*Catalog, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}

	return &Catalog{
		tools: make(map[string]Tool),
		index: index,
	}, nil
}

// buildIndexMapping creates the Bleve index mapping for tool documents.
func buildIndexMapping() mapping.IndexMapping {
	toolMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	toolMapping.AddFieldMappingsAt("name", nameFieldMapping)

	descFieldMapping := bleve.NewTextFieldMapping()
	toolMapping.AddFieldMappingsAt("description", descFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", toolMapping)

	return indexMapping
}

// Register adds a tool to the catalog, replacing any previous registration
// under the same name.
func (c *Catalog) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tools[tool.Name] = tool
	if err := c.index.Index(tool.Name, tool); err != nil {
		return fmt.Errorf("failed to index tool %s: %w", tool.Name, err)
	}

	return nil
}

// List returns all registered tool names in lexical order.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a registered tool by name.
func (c *Catalog) Get(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tool, ok := c.tools[name]
	return tool, ok
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// SearchResult is one search hit.
type SearchResult struct {
	// Tool is the matched tool.
	Tool Tool `json:"tool"`

	// Score is the BM25 relevance score.
	Score float64 `json:"score"`
}

// Search performs BM25 keyword search over tool names and descriptions.
func (c *Catalog) Search(query string, limit int) ([]SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	searchQuery := bleve.NewMatchQuery(query)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, limit, 0, false)

	results, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		tool, ok := c.tools[hit.ID]
		if !ok {
			continue
		}
		hits = append(hits, SearchResult{Tool: tool, Score: hit.Score})
	}

	return hits, nil
}
