package evidence

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// synonymCluster is one curated theme of requirement phrasings that should
// be treated as interchangeable for gap classification (spec §4.5).
type synonymCluster struct {
	Theme    string   `yaml:"theme"`
	Synonyms []string `yaml:"synonyms"`
}

// SynonymMap groups curated clusters so a requirement term can be checked
// against every synonym in its theme.
type SynonymMap struct {
	Clusters []synonymCluster `yaml:"clusters"`
}

// DefaultSynonymMapYAML is the built-in cluster set covering the
// leadership/strategy/execution/technical themes the spec names. Operators
// may override it by loading their own YAML via LoadSynonymMap.
const DefaultSynonymMapYAML = `
clusters:
  - theme: leadership
    synonyms: [leadership, led, lead, managed, mentored, supervised, directed]
  - theme: strategy
    synonyms: [strategy, strategic, roadmap, vision, planning, prioritization]
  - theme: execution
    synonyms: [execution, delivered, shipped, launched, drove, implemented]
  - theme: technical
    synonyms: [technical, engineering, architecture, designed, built, developed]
`

// LoadSynonymMap parses a YAML document into a SynonymMap.
func LoadSynonymMap(doc []byte) (SynonymMap, error) {
	var m SynonymMap
	if err := yaml.Unmarshal(doc, &m); err != nil {
		return SynonymMap{}, fmt.Errorf("parse synonym map: %w", err)
	}
	return m, nil
}

// Find returns the synonym (not the requirement itself) present in corpus
// whose cluster also contains requirementText, case-insensitively.
func (m SynonymMap) Find(requirementText, corpus string) string {
	req := strings.ToLower(strings.TrimSpace(requirementText))
	lowerCorpus := strings.ToLower(corpus)

	for _, cluster := range m.Clusters {
		inCluster := false
		for _, syn := range cluster.Synonyms {
			if strings.EqualFold(syn, req) {
				inCluster = true
				break
			}
		}
		if !inCluster {
			continue
		}
		for _, syn := range cluster.Synonyms {
			if strings.EqualFold(syn, req) {
				continue
			}
			if strings.Contains(lowerCorpus, strings.ToLower(syn)) {
				return syn
			}
		}
	}
	return ""
}
