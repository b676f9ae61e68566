package triage

import (
	"reflect"
	"testing"
)

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

func classify(t *testing.T, in Input) Result {
	t.Helper()
	return NewClassifier(DefaultConfig()).Classify(in)
}

func TestEmergencyKeywords(t *testing.T) {
	for _, symptoms := range []string{
		"crushing chest pain radiating to left arm",
		"sudden difficulty breathing",
		"patient found unconscious",
		"severe bleeding from laceration",
		"suspected stroke, face drooping",
		"possible heart attack",
		"ongoing seizure",
		"choking on food",
	} {
		res := classify(t, Input{Age: 30, Symptoms: symptoms})
		if res.Level != 1 || res.Category != CategoryEmergency {
			t.Errorf("symptoms %q: got level %d category %s, want 1/Emergency",
				symptoms, res.Level, res.Category)
		}
	}
}

func TestTierAssignment(t *testing.T) {
	tests := []struct {
		symptoms string
		level    int
		category Category
	}{
		{"high fever since yesterday", 2, CategoryHigh},
		{"vomiting blood this morning", 2, CategoryHigh},
		{"suspected wrist fracture", 2, CategoryHigh},
		{"moderate pain in abdomen", 3, CategoryMedium},
		{"persistent fever for three days", 3, CategoryMedium},
		{"dizziness when standing", 3, CategoryMedium},
		{"mild pain in shoulder", 4, CategoryLow},
		{"cough and runny nose", 4, CategoryLow},
		{"headache after work", 4, CategoryLow},
		{"routine check-up request", 5, CategoryNormal},
		{"", 5, CategoryNormal},
		{"   ", 5, CategoryNormal},
	}

	for _, tt := range tests {
		res := classify(t, Input{Age: 30, Symptoms: tt.symptoms})
		if res.Level != tt.level || res.Category != tt.category {
			t.Errorf("symptoms %q: got %d/%s, want %d/%s",
				tt.symptoms, res.Level, res.Category, tt.level, tt.category)
		}
	}
}

func TestCategoryAlwaysMatchesLevel(t *testing.T) {
	inputs := []Input{
		{Age: 2, Symptoms: "cold"},
		{Age: 85, Symptoms: "moderate pain"},
		{Age: 40, Symptoms: "chest pain"},
		{Age: 30, Symptoms: "mild pain", Vitals: &Vitals{OxygenSaturation: intPtr(90)}},
		{Age: 75, Symptoms: "headache", Vitals: &Vitals{Temperature: floatPtr(39.5), HeartRate: intPtr(130)}},
		{Age: 0, Symptoms: ""},
	}
	for _, in := range inputs {
		res := classify(t, in)
		if res.Category != CategoryForLevel(res.Level) {
			t.Errorf("input %+v: category %s does not match level %d", in, res.Category, res.Level)
		}
	}
}

func TestAgeEscalation(t *testing.T) {
	// Age < 5 on a Low base tier escalates one step.
	young := classify(t, Input{Age: 4, Symptoms: "cold"})
	if young.Level != 3 {
		t.Errorf("age 4 with cold: got level %d, want 3", young.Level)
	}
	adult := classify(t, Input{Age: 30, Symptoms: "cold"})
	if adult.Level != 4 {
		t.Errorf("age 30 with cold: got level %d, want 4", adult.Level)
	}
	elderly := classify(t, Input{Age: 71, Symptoms: "cold"})
	if elderly.Level != 3 {
		t.Errorf("age 71 with cold: got level %d, want 3", elderly.Level)
	}
	// Boundary ages are not escalated.
	if res := classify(t, Input{Age: 5, Symptoms: "cold"}); res.Level != 4 {
		t.Errorf("age 5 with cold: got level %d, want 4", res.Level)
	}
	if res := classify(t, Input{Age: 70, Symptoms: "cold"}); res.Level != 4 {
		t.Errorf("age 70 with cold: got level %d, want 4", res.Level)
	}
	// An emergency-tier result cannot tighten further.
	if res := classify(t, Input{Age: 2, Symptoms: "chest pain"}); res.Level != 1 {
		t.Errorf("age 2 with chest pain: got level %d, want 1", res.Level)
	}
}

func TestLowOxygenAlwaysWins(t *testing.T) {
	tests := []Input{
		{Age: 30, Symptoms: "mild pain", Vitals: &Vitals{OxygenSaturation: intPtr(90)}},
		{Age: 30, Symptoms: "", Vitals: &Vitals{OxygenSaturation: intPtr(93)}},
		{Age: 80, Symptoms: "cough", Vitals: &Vitals{OxygenSaturation: intPtr(85), Temperature: floatPtr(40.0)}},
	}
	for _, in := range tests {
		res := classify(t, in)
		if res.Level != 1 || res.Category != CategoryEmergency {
			t.Errorf("input %+v: got %d/%s, want 1/Emergency", in, res.Level, res.Category)
		}
	}
	// SpO2 at the cutoff does not trigger.
	res := classify(t, Input{Age: 30, Symptoms: "mild pain", Vitals: &Vitals{OxygenSaturation: intPtr(94)}})
	if res.Level != 4 {
		t.Errorf("SpO2 94: got level %d, want 4", res.Level)
	}
}

func TestHeartRateIsDirectSet(t *testing.T) {
	// From a Medium base tier the jump is one step...
	res := classify(t, Input{Age: 30, Symptoms: "moderate pain", Vitals: &Vitals{HeartRate: intPtr(130)}})
	if res.Level != 2 {
		t.Errorf("medium base + HR 130: got level %d, want 2", res.Level)
	}
	// ...but from a Low base tier it is a two-step jump, proving the rule is
	// a direct set rather than a decrement.
	res = classify(t, Input{Age: 30, Symptoms: "mild pain", Vitals: &Vitals{HeartRate: intPtr(130)}})
	if res.Level != 2 {
		t.Errorf("low base + HR 130: got level %d, want 2", res.Level)
	}
	// Bradycardia triggers the same rule.
	res = classify(t, Input{Age: 30, Symptoms: "mild pain", Vitals: &Vitals{HeartRate: intPtr(45)}})
	if res.Level != 2 {
		t.Errorf("low base + HR 45: got level %d, want 2", res.Level)
	}
	// A High base (level 2) is not touched: the guard is level > 2.
	res = classify(t, Input{Age: 30, Symptoms: "high fever", Vitals: &Vitals{HeartRate: intPtr(130)}})
	if res.Level != 2 {
		t.Errorf("high base + HR 130: got level %d, want 2", res.Level)
	}
}

func TestTemperatureDecrement(t *testing.T) {
	res := classify(t, Input{Age: 30, Symptoms: "mild pain", Vitals: &Vitals{Temperature: floatPtr(39.5)}})
	if res.Level != 3 {
		t.Errorf("low base + temp 39.5: got level %d, want 3", res.Level)
	}
	// Exactly 39 does not trigger.
	res = classify(t, Input{Age: 30, Symptoms: "mild pain", Vitals: &Vitals{Temperature: floatPtr(39.0)}})
	if res.Level != 4 {
		t.Errorf("low base + temp 39.0: got level %d, want 4", res.Level)
	}
}

func TestCumulativeEscalations(t *testing.T) {
	// Base Low (4), age 80 -> 3, temp 40 -> 2, HR 130 guard (level > 2) no-op.
	res := classify(t, Input{
		Age:      80,
		Symptoms: "cough",
		Vitals:   &Vitals{Temperature: floatPtr(40.0), HeartRate: intPtr(130)},
	})
	if res.Level != 2 || res.Category != CategoryHigh {
		t.Errorf("cumulative: got %d/%s, want 2/High", res.Level, res.Category)
	}
}

func TestExplanationAccumulates(t *testing.T) {
	res := classify(t, Input{
		Age:      3,
		Symptoms: "cough",
		Vitals:   &Vitals{OxygenSaturation: intPtr(90)},
	})
	want := "Minor symptoms detected. Age factor increases priority. Low oxygen saturation - critical concern."
	if res.Explanation != want {
		t.Errorf("explanation = %q, want %q", res.Explanation, want)
	}
}

func TestRuleBasedMetadata(t *testing.T) {
	res := classify(t, Input{Age: 30, Symptoms: "headache"})
	if res.Confidence != 0.70 {
		t.Errorf("confidence = %v, want 0.70", res.Confidence)
	}
	if res.Source != SourceRuleBased {
		t.Errorf("source = %s, want rule-based", res.Source)
	}
	if res.Symptoms != "headache" {
		t.Errorf("symptoms not echoed: %q", res.Symptoms)
	}
	if res.RecommendedAction == "" {
		t.Error("expected recommended action")
	}
}

func TestClassifyIsPure(t *testing.T) {
	in := Input{
		Age:      80,
		Symptoms: "persistent fever and weakness",
		Vitals:   &Vitals{Temperature: floatPtr(39.4), HeartRate: intPtr(118)},
	}
	c := NewClassifier(DefaultConfig())
	first := c.Classify(in)
	second := c.Classify(in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("classify not idempotent: %+v vs %+v", first, second)
	}
}
