package domain

import "slices"

// DefaultModels is the model list offered when none is configured.
var DefaultModels = []string{
	"deepseek-v3",
	"gpt-4.1",
	"bidara",
	"deepseek-r1",
	"mirexa",
	"sur",
	"gpt-4.1-mini",
}

// ModelCatalog is the fixed, ordered set of models a conversation may select.
type ModelCatalog struct {
	models []string
}

// NewModelCatalog creates a catalog from the given ids, dropping blanks and
// duplicates. An empty input falls back to DefaultModels.
func NewModelCatalog(models []string) ModelCatalog {
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m == "" || slices.Contains(out, m) {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		out = append(out, DefaultModels...)
	}
	return ModelCatalog{models: out}
}

// Default returns the first model of the catalog.
func (c ModelCatalog) Default() string {
	return c.models[0]
}

// Known reports whether id is one of the catalog models.
func (c ModelCatalog) Known(id string) bool {
	return slices.Contains(c.models, id)
}

// List returns a copy of the catalog in order.
func (c ModelCatalog) List() []string {
	return slices.Clone(c.models)
}
