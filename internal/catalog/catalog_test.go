package catalog

import "testing"

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestRegisterAndGet(t *testing.T) {
	c := newTestCatalog(t)

	tool := Tool{Name: "export_journals", Description: "Export journal entries to a file"}
	if err := c.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := c.Get("export_journals")
	if !ok {
		t.Fatal("expected tool to be found")
	}
	if got.Description != tool.Description {
		t.Errorf("expected description %q, got %q", tool.Description, got.Description)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected missing tool to report not found")
	}
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	c := newTestCatalog(t)

	if err := c.Register(Tool{Description: "no name"}); err == nil {
		t.Error("expected empty tool name to be rejected")
	}
}

func TestRegisterReplaces(t *testing.T) {
	c := newTestCatalog(t)

	c.Register(Tool{Name: "a", Description: "first"})
	c.Register(Tool{Name: "a", Description: "second"})

	if c.Len() != 1 {
		t.Errorf("expected 1 tool after re-registration, got %d", c.Len())
	}
	got, _ := c.Get("a")
	if got.Description != "second" {
		t.Errorf("expected latest registration to win, got %q", got.Description)
	}
}

func TestListSorted(t *testing.T) {
	c := newTestCatalog(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		c.Register(Tool{Name: name})
	}

	names := c.List()
	if len(names) != 3 {
		t.Fatalf("expected 3 names, got %d", len(names))
	}
	if names[0] != "alpha" || names[1] != "mid" || names[2] != "zeta" {
		t.Errorf("expected lexical order [alpha mid zeta], got %v", names)
	}
}

func TestListEmpty(t *testing.T) {
	c := newTestCatalog(t)

	if names := c.List(); len(names) != 0 {
		t.Errorf("expected empty list, got %v", names)
	}
}

func TestSearchMatchesDescription(t *testing.T) {
	c := newTestCatalog(t)

	c.Register(Tool{Name: "get_dimensions", Description: "List cube dimensions and hierarchies"})
	c.Register(Tool{Name: "export_journals", Description: "Export journal entries for consolidation"})
	c.Register(Tool{Name: "run_rules", Description: "Run business rules on a scenario"})

	hits, err := c.Search("journal consolidation", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	if hits[0].Tool.Name != "export_journals" {
		t.Errorf("expected export_journals as top hit, got %s", hits[0].Tool.Name)
	}
	if hits[0].Score <= 0 {
		t.Errorf("expected positive relevance score, got %f", hits[0].Score)
	}
}

func TestSearchLimit(t *testing.T) {
	c := newTestCatalog(t)

	c.Register(Tool{Name: "a", Description: "data tool"})
	c.Register(Tool{Name: "b", Description: "data tool"})
	c.Register(Tool{Name: "c", Description: "data tool"})

	hits, err := c.Search("data", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) > 2 {
		t.Errorf("expected at most 2 hits, got %d", len(hits))
	}
}

func TestSearchNoMatches(t *testing.T) {
	c := newTestCatalog(t)

	c.Register(Tool{Name: "a", Description: "data tool"})

	hits, err := c.Search("zzzzz", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}
