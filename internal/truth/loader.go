package truth

import (
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/veridoc/veridoc/pkg/models"
)

// familyDoc is the on-disk shape of one family's truth data.
type familyDoc struct {
	Family  string                    `yaml:"family"`
	Plugins []models.PluginDefinition `yaml:"plugins"`
}

// parseFamily unmarshals and validates raw family truth data.
func parseFamily(family string, data []byte) (*familyDoc, error) {
	var doc familyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if doc.Family != "" && doc.Family != family {
		return nil, fmt.Errorf("truth file declares family %q, expected %q", doc.Family, family)
	}
	if len(doc.Plugins) == 0 {
		return nil, fmt.Errorf("no plugin definitions")
	}

	for i, def := range doc.Plugins {
		if def.ID == "" {
			return nil, fmt.Errorf("plugin at position %d has no id", i)
		}
		if len(def.Patterns) == 0 {
			return nil, fmt.Errorf("plugin %q has no patterns", def.ID)
		}
		for _, rule := range def.Rules {
			if rule.ID == "" {
				return nil, fmt.Errorf("plugin %q has a rule with no id", def.ID)
			}
			if len(rule.Forbid) == 0 && len(rule.Require) == 0 {
				return nil, fmt.Errorf("plugin %q rule %q forbids and requires nothing", def.ID, rule.ID)
			}
		}
	}

	return &doc, nil
}
