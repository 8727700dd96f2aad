package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

type rulesFile struct {
	ProductionRules models.Rules `yaml:"production_rules"`
}

// LoadRules reads the production rules file. A missing path or file yields
// the built-in rules; sections absent from the file keep their defaults.
func LoadRules(path string) (models.Rules, error) {
	defaults := models.DefaultRules()
	if path == "" {
		return defaults, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return models.Rules{}, fmt.Errorf("read rules file %s: %w", path, err)
	}
	return ParseRules(raw)
}

// ParseRules decodes a YAML rules document over the built-in defaults.
func ParseRules(raw []byte) (models.Rules, error) {
	defaults := models.DefaultRules()

	var doc rulesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return models.Rules{}, fmt.Errorf("decode rules: %w", err)
	}
	rules := doc.ProductionRules

	if rules.LineCompatibility == nil {
		rules.LineCompatibility = defaults.LineCompatibility
	}
	if rules.PriorityWeights == nil {
		rules.PriorityWeights = defaults.PriorityWeights
	}
	if rules.OptimizationCriteria.IsZero() {
		rules.OptimizationCriteria = defaults.OptimizationCriteria
	}
	if rules.Constraints == (models.Constraints{}) {
		rules.Constraints = defaults.Constraints
	}

	for p := range rules.PriorityWeights {
		if _, err := models.ParsePriority(string(p)); err != nil {
			return models.Rules{}, fmt.Errorf("priority_weights: %w", err)
		}
	}
	if err := rules.OptimizationCriteria.Validate(); err != nil {
		return models.Rules{}, fmt.Errorf("optimization_criteria: %w", err)
	}
	return rules, nil
}
