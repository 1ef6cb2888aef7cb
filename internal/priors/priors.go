// Package priors provides the epidemiological and genomic prior
// collaborators consumed by the evidence aggregator.
package priors

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed epidemiology.yaml genomic.yaml
var dataFS embed.FS

// Epidemiology serves region/month disease prior weights.
type Epidemiology struct {
	regions map[string]regionPriors
}

type regionPriors struct {
	Baseline map[string]float64         `yaml:"baseline"`
	Monthly  map[int]map[string]float64 `yaml:"monthly"`
}

// NewEpidemiology loads the embedded epidemiological prior tables.
func NewEpidemiology() (*Epidemiology, error) {
	data, err := dataFS.ReadFile("epidemiology.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read epidemiology data: %w", err)
	}
	var f struct {
		Regions map[string]regionPriors `yaml:"regions"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse epidemiology data: %w", err)
	}
	return &Epidemiology{regions: f.Regions}, nil
}

// GetPriors returns disease prior weights for a region and month. Monthly
// weights override the baseline for that month. Unknown regions fall back
// to Global; month 0 means no seasonal component.
func (e *Epidemiology) GetPriors(region string, month int) (map[string]float64, error) {
	rp, ok := e.regions[region]
	if !ok {
		rp, ok = e.regions["Global"]
		if !ok {
			return map[string]float64{}, nil
		}
	}

	priors := make(map[string]float64, len(rp.Baseline))
	for id, w := range rp.Baseline {
		priors[id] = w
	}
	if month >= 1 && month <= 12 {
		for id, w := range rp.Monthly[month] {
			priors[id] = w
		}
	}
	return priors, nil
}

// Genomic serves disease risk multipliers for genetic variants.
type Genomic struct {
	variants map[string]map[string]float64
}

// NewGenomic loads the embedded variant risk tables.
func NewGenomic() (*Genomic, error) {
	data, err := dataFS.ReadFile("genomic.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read genomic data: %w", err)
	}
	var f struct {
		Variants map[string]map[string]float64 `yaml:"variants"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse genomic data: %w", err)
	}
	return &Genomic{variants: f.Variants}, nil
}

// GetRiskModifiers returns the combined disease risk multipliers for the
// given variants. Multipliers for the same disease compound.
func (g *Genomic) GetRiskModifiers(variants []string) (map[string]float64, error) {
	modifiers := make(map[string]float64)
	for _, v := range variants {
		for diseaseID, m := range g.variants[v] {
			if existing, ok := modifiers[diseaseID]; ok {
				modifiers[diseaseID] = existing * m
			} else {
				modifiers[diseaseID] = m
			}
		}
	}
	return modifiers, nil
}
