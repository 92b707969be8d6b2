package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type rosterDoc struct {
	Principals []string `yaml:"principals"`
}

// LoadRoster reads a YAML roster file of tracked principals.
func LoadRoster(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file %s: %w", path, err)
	}

	var doc rosterDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing roster file %s: %w", path, err)
	}

	principals := make([]string, 0, len(doc.Principals))
	for _, p := range doc.Principals {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		principals = append(principals, p)
	}
	if len(principals) == 0 {
		return nil, fmt.Errorf("roster file %s lists no principals", path)
	}
	return principals, nil
}
