// Package treatment maps a diagnosed disease and severity to a treatment
// plan, filtering medications against patient contraindications.
package treatment

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed protocols.yaml
var protocolsFS embed.FS

// Medication is one prescribed drug within a plan.
type Medication struct {
	Name      string   `json:"name" yaml:"name"`
	Dosage    string   `json:"dosage" yaml:"dosage"`
	Duration  string   `json:"duration" yaml:"duration"`
	AvoidWith []string `json:"avoid_with,omitempty" yaml:"avoid_with"`
}

// Plan is a treatment recommendation for one disease at one severity.
type Plan struct {
	DiseaseID      string       `json:"disease_id"`
	Disease        string       `json:"disease"`
	Severity       string       `json:"severity"`
	Medications    []Medication `json:"medications"`
	SupportiveCare []string     `json:"supportive_care"`
	FollowUpDays   int          `json:"follow_up_days"`
	Warnings       []string     `json:"warnings,omitempty"`
}

type severityEntry struct {
	Medications    []Medication `yaml:"medications"`
	SupportiveCare []string     `yaml:"supportive_care"`
	FollowUpDays   int          `yaml:"follow_up_days"`
}

type protocol struct {
	Disease    string                   `yaml:"disease"`
	Severities map[string]severityEntry `yaml:"severities"`
	Warnings   []string                 `yaml:"warnings"`
}

// Recommender resolves treatment plans from the embedded protocol set.
type Recommender struct {
	protocols map[string]protocol
}

// New loads the embedded treatment protocols.
func New() (*Recommender, error) {
	data, err := protocolsFS.ReadFile("protocols.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read treatment protocols: %w", err)
	}
	var f struct {
		Protocols map[string]protocol `yaml:"protocols"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse treatment protocols: %w", err)
	}
	return &Recommender{protocols: f.Protocols}, nil
}

// GetTreatment returns the plan for a disease at the given severity, or nil
// when no protocol exists. Medications matching a contraindication are
// removed and a warning is added in their place. An unknown severity falls
// back to moderate, then to whichever severity the protocol defines.
func (r *Recommender) GetTreatment(diseaseID, severity string, contraindications []string) *Plan {
	p, ok := r.protocols[diseaseID]
	if !ok {
		return nil
	}

	entry, ok := p.Severities[severity]
	if !ok {
		severity, entry, ok = fallbackSeverity(p)
		if !ok {
			return nil
		}
	}

	plan := &Plan{
		DiseaseID:      diseaseID,
		Disease:        p.Disease,
		Severity:       severity,
		SupportiveCare: entry.SupportiveCare,
		FollowUpDays:   entry.FollowUpDays,
		Warnings:       append([]string(nil), p.Warnings...),
	}
	for _, med := range entry.Medications {
		if reason, blocked := contraindicated(med, contraindications); blocked {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("%s omitted due to contraindication: %s", med.Name, reason))
			continue
		}
		plan.Medications = append(plan.Medications, med)
	}
	return plan
}

func fallbackSeverity(p protocol) (string, severityEntry, bool) {
	if entry, ok := p.Severities["moderate"]; ok {
		return "moderate", entry, true
	}
	names := make([]string, 0, len(p.Severities))
	for name := range p.Severities {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", severityEntry{}, false
	}
	sort.Strings(names)
	return names[0], p.Severities[names[0]], true
}

func contraindicated(med Medication, contraindications []string) (string, bool) {
	for _, c := range contraindications {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if strings.Contains(strings.ToLower(med.Name), c) {
			return c, true
		}
		for _, avoid := range med.AvoidWith {
			if strings.Contains(strings.ToLower(avoid), c) || strings.Contains(c, strings.ToLower(avoid)) {
				return c, true
			}
		}
	}
	return "", false
}

// DiseaseIDs lists the diseases with a treatment protocol, sorted.
func (r *Recommender) DiseaseIDs() []string {
	ids := make([]string, 0, len(r.protocols))
	for id := range r.protocols {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
