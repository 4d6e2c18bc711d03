package domain

import "testing"

func TestModelCatalog(t *testing.T) {
	t.Parallel()

	c := NewModelCatalog([]string{"b", "", "a", "b"})
	if got := c.List(); len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("Unexpected catalog %v", got)
	}
	if c.Default() != "b" {
		t.Errorf("Expected default b, got %s", c.Default())
	}
	if !c.Known("a") || c.Known("c") {
		t.Error("Known reported wrong membership")
	}

	list := c.List()
	list[0] = "mutated"
	if c.Default() != "b" {
		t.Error("List exposed internal slice")
	}
}

func TestModelCatalog_FallsBackToDefaults(t *testing.T) {
	t.Parallel()

	c := NewModelCatalog(nil)
	if c.Default() != DefaultModels[0] {
		t.Errorf("Expected %s, got %s", DefaultModels[0], c.Default())
	}
	if len(c.List()) != len(DefaultModels) {
		t.Errorf("Expected %d models, got %d", len(DefaultModels), len(c.List()))
	}
}
