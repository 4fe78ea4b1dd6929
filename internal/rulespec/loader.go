// Package rulespec loads ontology and rule definitions from YAML documents
// and turns them into validated rule sets.  A document carries both the
// class hierarchy and the rules bound to it, so one file fully determines
// one classifier.
package rulespec

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/ChemClassify/internal/domain/ontology"
	"github.com/turtacn/ChemClassify/internal/domain/rule"
	"github.com/turtacn/ChemClassify/pkg/errors"
)

// Rule kinds recognised in rule-set documents.
const (
	KindSubstructure    = "substructure"
	KindDescriptorRange = "descriptor_range"
	KindWeightedScore   = "weighted_score"
)

// Document is the top-level shape of a rule-set file.
type Document struct {
	Version  int         `yaml:"version"`
	Ontology OntologyDoc `yaml:"ontology"`
	Rules    []RuleDoc   `yaml:"rules"`
}

// OntologyDoc declares the class hierarchy.
type OntologyDoc struct {
	Classes []ClassDoc `yaml:"classes"`
}

// ClassDoc declares one ontology class.
type ClassDoc struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Definition   string   `yaml:"definition"`
	Parents      []string `yaml:"parents"`
	DisjointWith []string `yaml:"disjoint_with"`
}

// RuleDoc declares one rule of any kind; kind selects which fields apply.
// Min and Max are pointers so an absent bound reads as open.
type RuleDoc struct {
	ID      string   `yaml:"id"`
	Kind    string   `yaml:"kind"`
	Classes []string `yaml:"classes"`

	// substructure
	Pattern            string  `yaml:"pattern"`
	MinCount           int     `yaml:"min_count"`
	Confidence         float64 `yaml:"confidence"`
	NegativeConfidence float64 `yaml:"negative_confidence"`

	// descriptor_range
	Descriptor string   `yaml:"descriptor"`
	Min        *float64 `yaml:"min"`
	Max        *float64 `yaml:"max"`

	// weighted_score
	Features  []string  `yaml:"features"`
	Weights   []float64 `yaml:"weights"`
	Bias      float64   `yaml:"bias"`
	Threshold float64   `yaml:"threshold"`
}

// Parse decodes a rule-set document and builds the validated rule set.
// Decode failures are RULE_003; an unrecognised rule kind is RULE_002;
// ontology and per-rule validation errors propagate with their own codes.
func Parse(data []byte) (*rule.RuleSet, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleSpecParseFailed,
			"failed to decode rule-set document")
	}

	classes := make([]ontology.Class, 0, len(doc.Ontology.Classes))
	for _, c := range doc.Ontology.Classes {
		classes = append(classes, ontology.Class{
			ID:           ontology.ClassID(c.ID),
			Name:         c.Name,
			Definition:   c.Definition,
			Parents:      toClassIDs(c.Parents),
			DisjointWith: toClassIDs(c.DisjointWith),
		})
	}
	graph, err := ontology.NewGraph(classes)
	if err != nil {
		return nil, err
	}

	rules := make([]rule.Rule, 0, len(doc.Rules))
	for i, rd := range doc.Rules {
		r, err := buildRule(rd)
		if err != nil {
			return nil, errors.Wrap(err, errors.GetCode(err),
				fmt.Sprintf("rule %d (%s) rejected", i, rd.ID))
		}
		rules = append(rules, r)
	}
	return rule.NewRuleSet(graph, rules)
}

// Load reads and parses the rule-set file at path.
func Load(path string) (*rule.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleSpecParseFailed,
			"failed to read rule-set file").WithDetail("path=" + path)
	}
	return Parse(data)
}

func buildRule(rd RuleDoc) (rule.Rule, error) {
	classes := make([]ontology.ClassID, 0, len(rd.Classes))
	for _, c := range rd.Classes {
		classes = append(classes, ontology.ClassID(c))
	}

	switch rd.Kind {
	case KindSubstructure:
		return rule.NewSubstructureRule(rule.SubstructureRuleConfig{
			ID:                 rd.ID,
			Classes:            classes,
			Pattern:            rd.Pattern,
			MinCount:           rd.MinCount,
			Confidence:         rd.Confidence,
			NegativeConfidence: rd.NegativeConfidence,
		})
	case KindDescriptorRange:
		return rule.NewDescriptorRangeRule(rule.DescriptorRangeRuleConfig{
			ID:         rd.ID,
			Classes:    classes,
			Descriptor: rd.Descriptor,
			Min:        bound(rd.Min),
			Max:        bound(rd.Max),
			Confidence: rd.Confidence,
		})
	case KindWeightedScore:
		return rule.NewWeightedScoreRule(rule.WeightedScoreRuleConfig{
			ID:        rd.ID,
			Classes:   classes,
			Features:  rd.Features,
			Weights:   rd.Weights,
			Bias:      rd.Bias,
			Threshold: rd.Threshold,
		})
	default:
		return nil, errors.New(errors.ErrCodeRuleUnknownKind, "unrecognised rule kind").
			WithDetail(fmt.Sprintf("rule=%s kind=%q", rd.ID, rd.Kind))
	}
}

func toClassIDs(ss []string) []ontology.ClassID {
	if len(ss) == 0 {
		return nil
	}
	out := make([]ontology.ClassID, len(ss))
	for i, s := range ss {
		out[i] = ontology.ClassID(s)
	}
	return out
}

// bound converts an optional document bound into the NaN-is-open convention
// of descriptor rules.
func bound(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
