package models

// Rules is the static production configuration loaded once at startup.
type Rules struct {
	LineCompatibility    map[string][]LineID `yaml:"line_compatibility" json:"line_compatibility"`
	PriorityWeights      map[Priority]int    `yaml:"priority_weights" json:"priority_weights"`
	OptimizationCriteria OptimizationWeights `yaml:"optimization_criteria" json:"optimization_criteria"`
	Constraints          Constraints         `yaml:"constraints" json:"constraints"`
}

// Constraints are shop floor limits carried with the rules.
type Constraints struct {
	MaxContinuousHours    int  `yaml:"max_continuous_hours" json:"max_continuous_hours"`
	MinBreakBetweenShifts int  `yaml:"min_break_between_shifts" json:"min_break_between_shifts"`
	MaxOvertimePerWeek    int  `yaml:"max_overtime_per_week" json:"max_overtime_per_week"`
	QualityCheckMandatory bool `yaml:"quality_check_mandatory" json:"quality_check_mandatory"`
}

// DefaultRules mirrors the rules shipped with the first plant configuration.
func DefaultRules() Rules {
	return Rules{
		LineCompatibility: map[string][]LineID{
			"Electronics": {"LINE-A01", "LINE-A02", "LINE-B02"},
			"Automotive":  {"LINE-A01", "LINE-B01", "LINE-B02"},
			"Medical":     {"LINE-A02", "LINE-B02"},
			"Heavy":       {"LINE-B01", "LINE-B02"},
			"Precision":   {"LINE-B02"},
			"Package":     {"LINE-C01", "LINE-C02"},
			CategoryAll:   {"LINE-C01", "LINE-C02"},
		},
		PriorityWeights: map[Priority]int{
			PriorityCritical: 100,
			PriorityHigh:     75,
			PriorityMedium:   50,
			PriorityLow:      25,
		},
		OptimizationCriteria: OptimizationWeights{
			MinimizeDelays:     0.4,
			MaximizeEfficiency: 0.3,
			BalanceWorkload:    0.2,
			MinimizeSetup:      0.1,
		},
		Constraints: Constraints{
			MaxContinuousHours:    16,
			MinBreakBetweenShifts: 8,
			MaxOvertimePerWeek:    20,
			QualityCheckMandatory: true,
		},
	}
}

// PriorityWeight returns the configured weight for p, zero when unknown.
func (r Rules) PriorityWeight(p Priority) int {
	return r.PriorityWeights[p]
}
