package backend

import (
	"fmt"
	"os"

	"github.com/aretw0/runlens/pkg/domain"
	"gopkg.in/yaml.v3"
)

// LoadSchemaFile reads a graph schema from a YAML file:
//
//	nodes:
//	  - id: supervisor
//	edges:
//	  - source: supervisor
//	    target: researcher
func LoadSchemaFile(path string) (domain.GraphSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.GraphSchema{}, fmt.Errorf("failed to read schema file: %w", err)
	}

	var schema domain.GraphSchema
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return domain.GraphSchema{}, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	return schema, nil
}
