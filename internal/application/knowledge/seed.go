package knowledge

import (
	_ "embed"
	"fmt"

	"github.com/bryanwahyu/automaton-sar/internal/domain/knowledge"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// ParseSeed decodes a YAML list of documents. Every document needs an id and text.
func ParseSeed(data []byte) ([]knowledge.Document, error) {
	var docs []knowledge.Document
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	seen := make(map[string]bool, len(docs))
	for i, d := range docs {
		if d.ID == "" || d.Text == "" {
			return nil, fmt.Errorf("parse seed: document %d needs id and text", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("parse seed: duplicate id %q", d.ID)
		}
		seen[d.ID] = true
	}
	return docs, nil
}

// DefaultSeed is the built-in corpus: narrative templates, FinCEN guidance and
// typology definitions.
func DefaultSeed() []knowledge.Document {
	docs, err := ParseSeed(seedYAML)
	if err != nil {
		panic(err)
	}
	return docs
}
