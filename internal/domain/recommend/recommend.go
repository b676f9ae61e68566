// Package recommend implements drug category recommendation: input/result
// types and the rule-based mapper used when remote inference is unavailable.
package recommend

import "strings"

// Source marks which engine produced a recommendation.
type Source string

const (
	SourceML        Source = "ml"
	SourceRuleBased Source = "rule-based"
)

// CategoryNone is returned when no medication is recommended.
const CategoryNone = "None"

// Input is a recommendation request for one patient.
type Input struct {
	Condition string `json:"condition"`
	Age       int    `json:"age"`
	Allergy   string `json:"allergy,omitempty"`
}

// Result is a drug category recommendation. Advisory only; prescribing
// decisions stay with the clinician.
type Result struct {
	DrugCategory string  `json:"drugCategory"`
	Warning      string  `json:"warning,omitempty"`
	Confidence   float64 `json:"confidence"`
	Source       Source  `json:"source"`
}

// Rule maps condition keywords to a drug category. A non-empty Allergy names
// the allergy that contraindicates the category.
type Rule struct {
	Keywords       []string
	Category       string
	Allergy        string
	AllergyWarning string
}

// Config holds the recommendation rules and cutoffs.
type Config struct {
	Rules      []Rule
	Confidence float64
	// AgeWarning is appended for patients under 5 or over 75.
	AgeWarning string
}

// DefaultConfig returns the standard condition-to-category mapping.
func DefaultConfig() Config {
	return Config{
		Rules: []Rule{
			{
				Keywords:       []string{"infection", "bacterial"},
				Category:       "Antibiotic",
				Allergy:        "penicillin",
				AllergyWarning: "⚠️ Patient has penicillin allergy - use alternative antibiotic.",
			},
			{
				Keywords:       []string{"headache", "migraine"},
				Category:       "Analgesic",
				Allergy:        "aspirin",
				AllergyWarning: "⚠️ Patient has aspirin allergy - use alternative analgesic.",
			},
			{Keywords: []string{"fever"}, Category: "Antipyretic"},
			{Keywords: []string{"cough"}, Category: "Antitussive"},
			{Keywords: []string{"cold"}, Category: "Decongestant"},
			{Keywords: []string{"allergy"}, Category: "Antihistamine"},
		},
		Confidence: 0.6,
		AgeWarning: "Age-specific dosage considerations required.",
	}
}

// Classifier is the rule-based recommendation engine. Pure, stateless, and
// safe for concurrent use.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier. A zero config falls back to defaults.
func NewClassifier(cfg Config) *Classifier {
	if len(cfg.Rules) == 0 {
		cfg = DefaultConfig()
	}
	return &Classifier{cfg: cfg}
}

// Classify maps the condition to a drug category. Rules are checked in order
// and the first keyword match wins; no match recommends no medication.
func (c *Classifier) Classify(in Input) Result {
	condition := strings.ToLower(in.Condition)
	allergy := strings.ToLower(in.Allergy)
	if allergy == "" {
		allergy = "none"
	}

	res := Result{
		DrugCategory: CategoryNone,
		Confidence:   c.cfg.Confidence,
		Source:       SourceRuleBased,
	}

scan:
	for _, rule := range c.cfg.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(condition, kw) {
				res.DrugCategory = rule.Category
				if rule.Allergy != "" && allergy == rule.Allergy {
					res.Warning = rule.AllergyWarning
				}
				break scan
			}
		}
	}

	if in.Age < 5 || in.Age > 75 {
		if res.Warning != "" {
			res.Warning += " " + c.cfg.AgeWarning
		} else {
			res.Warning = c.cfg.AgeWarning
		}
	}
	return res
}
