package recommend

import (
	"strings"
	"testing"
)

func TestClassifyConditionMapping(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	tests := []struct {
		name      string
		condition string
		want      string
	}{
		{"bacterial infection", "bacterial infection", "Antibiotic"},
		{"infection keyword alone", "ear infection", "Antibiotic"},
		{"headache", "tension headache", "Analgesic"},
		{"migraine", "chronic migraine", "Analgesic"},
		{"fever", "persistent fever", "Antipyretic"},
		{"cough", "dry cough", "Antitussive"},
		{"cold", "common cold", "Decongestant"},
		{"allergy", "seasonal allergy", "Antihistamine"},
		{"mixed case", "Bacterial Infection", "Antibiotic"},
		{"unmapped condition", "sprained ankle", CategoryNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(Input{Condition: tt.condition, Age: 40})
			if res.DrugCategory != tt.want {
				t.Errorf("category = %q, want %q", res.DrugCategory, tt.want)
			}
			if res.Confidence != 0.6 {
				t.Errorf("confidence = %v, want 0.6", res.Confidence)
			}
			if res.Source != SourceRuleBased {
				t.Errorf("source = %q, want rule-based", res.Source)
			}
		})
	}
}

func TestClassifyAllergyWarnings(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	res := c.Classify(Input{Condition: "bacterial infection", Age: 40, Allergy: "penicillin"})
	if !strings.Contains(res.Warning, "penicillin allergy") {
		t.Errorf("warning = %q, want penicillin allergy warning", res.Warning)
	}

	res = c.Classify(Input{Condition: "migraine", Age: 40, Allergy: "aspirin"})
	if !strings.Contains(res.Warning, "aspirin allergy") {
		t.Errorf("warning = %q, want aspirin allergy warning", res.Warning)
	}

	// An unrelated allergy does not trigger the contraindication warning.
	res = c.Classify(Input{Condition: "bacterial infection", Age: 40, Allergy: "aspirin"})
	if res.Warning != "" {
		t.Errorf("warning = %q, want none", res.Warning)
	}
}

func TestClassifyAgeWarning(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	for _, age := range []int{4, 76} {
		res := c.Classify(Input{Condition: "fever", Age: age})
		if !strings.Contains(res.Warning, "Age-specific dosage") {
			t.Errorf("age %d: warning = %q, want age warning", age, res.Warning)
		}
	}

	// Boundary ages get no warning.
	for _, age := range []int{5, 75} {
		res := c.Classify(Input{Condition: "fever", Age: age})
		if res.Warning != "" {
			t.Errorf("age %d: warning = %q, want none", age, res.Warning)
		}
	}
}

func TestClassifyCombinedWarnings(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	res := c.Classify(Input{Condition: "bacterial infection", Age: 80, Allergy: "penicillin"})
	if !strings.Contains(res.Warning, "penicillin allergy") || !strings.Contains(res.Warning, "Age-specific dosage") {
		t.Errorf("warning = %q, want both allergy and age warnings", res.Warning)
	}
}

func TestNewClassifierZeroConfig(t *testing.T) {
	c := NewClassifier(Config{})
	res := c.Classify(Input{Condition: "fever", Age: 30})
	if res.DrugCategory != "Antipyretic" {
		t.Errorf("zero config did not fall back to defaults: %+v", res)
	}
}
