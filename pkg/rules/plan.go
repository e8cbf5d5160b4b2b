package rules

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Plan holds the benefit-plan facts and thresholds the engine evaluates
// against. Coverage dates are YYYY-MM-DD strings.
type Plan struct {
	CoverageStart      string `yaml:"coverage_start" json:"coverageStart"`
	CoverageEnd        string `yaml:"coverage_end" json:"coverageEnd"`
	CopayOrCoins       string `yaml:"copay_or_coins" json:"copayOrCoins"`
	PTVisitLimit       int    `yaml:"pt_visit_limit" json:"ptVisitLimit"`
	PTVisitsUsed       int    `yaml:"pt_visits_used" json:"ptVisitsUsed"`
	AuthVisitThreshold int    `yaml:"auth_visit_threshold" json:"authVisitThreshold"`
	ValidityDays       int    `yaml:"validity_days" json:"validityDays"`
}

// LoadPlan reads a plan definition from a YAML file. An empty path
// selects the built-in demo plan.
func LoadPlan(path string) (Plan, error) {
	if path == "" {
		return DefaultPlan(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultPlan(), err
	}

	var plan Plan
	if err := yaml.Unmarshal(content, &plan); err != nil {
		return Plan{}, err
	}

	if plan.PTVisitLimit <= 0 || plan.ValidityDays <= 0 {
		return Plan{}, errors.New("plan rules incomplete")
	}

	return plan, nil
}

func DefaultPlan() Plan {
	return Plan{
		CoverageStart:      "2025-01-01",
		CoverageEnd:        "2025-12-31",
		CopayOrCoins:       "20% coinsurance",
		PTVisitLimit:       12,
		PTVisitsUsed:       2,
		AuthVisitThreshold: 6,
		ValidityDays:       60,
	}
}
