package terminology

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Procedure struct {
	Display  string `yaml:"display" json:"display"`
	Category string `yaml:"category" json:"category"`
}

// Catalog maps CPT codes to human-readable procedure descriptions so
// reviewers do not have to look codes up by hand.
type Catalog struct {
	Procedures map[string]Procedure `yaml:"procedures" json:"procedures"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Procedures) == 0 {
		return Catalog{}, fmt.Errorf("terminology catalog empty")
	}
	return cat, nil
}

func (c Catalog) Lookup(code string) (Procedure, bool) {
	if c.Procedures == nil {
		return Procedure{}, false
	}
	proc, ok := c.Procedures[code]
	return proc, ok
}

// Describe returns display names for the codes present in the catalog;
// unknown codes are simply omitted.
func (c Catalog) Describe(codes []string) map[string]string {
	out := make(map[string]string)
	for _, code := range codes {
		if proc, ok := c.Lookup(code); ok {
			out[code] = proc.Display
		}
	}
	return out
}

func DefaultCatalog() Catalog {
	return Catalog{Procedures: map[string]Procedure{
		"97161": {Display: "PT evaluation, low complexity", Category: "evaluation"},
		"97162": {Display: "PT evaluation, moderate complexity", Category: "evaluation"},
		"97163": {Display: "PT evaluation, high complexity", Category: "evaluation"},
		"97110": {Display: "Therapeutic exercise", Category: "treatment"},
		"97112": {Display: "Neuromuscular re-education", Category: "treatment"},
		"97140": {Display: "Manual therapy", Category: "treatment"},
		"97530": {Display: "Therapeutic activities", Category: "treatment"},
	}}
}
