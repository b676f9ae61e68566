package triage

import "strings"

// Tier is one keyword tier of the rule-based classifier. Patterns are
// case-insensitive substrings scanned in order against the symptom text.
type Tier struct {
	Level             int
	Patterns          []string
	Explanation       string
	RecommendedAction string
}

// Config holds the classifier's keyword tiers and numeric cutoffs so they can
// be tuned or tested without touching call sites.
type Config struct {
	// Tiers are scanned top to bottom; the first tier with a matching
	// pattern wins.
	Tiers []Tier

	// VulnerableAgeUnder/Over bound the age escalation: ages strictly below
	// or strictly above these escalate one level.
	VulnerableAgeUnder int
	VulnerableAgeOver  int

	// FeverTempC is the temperature cutoff in Celsius.
	FeverTempC float64
	// LowOxygenSat is the SpO2 percentage below which the result is forced
	// to level 1.
	LowOxygenSat int
	// HighHeartRate/LowHeartRate bound the abnormal heart rate check.
	HighHeartRate int
	LowHeartRate  int

	// Confidence is the fixed confidence attached to rule-based results.
	Confidence float64
}

// DefaultConfig returns the standard tiers and cutoffs.
func DefaultConfig() Config {
	return Config{
		Tiers: []Tier{
			{
				Level: 1,
				Patterns: []string{
					"chest pain", "difficulty breathing", "unconscious",
					"severe bleeding", "stroke", "heart attack", "seizure",
					"choking", "cardiac arrest", "not breathing",
					"liver failure", "kidney failure", "organ failure",
					"shock", "coma",
				},
				Explanation:       "Critical symptoms detected requiring immediate attention.",
				RecommendedAction: "Immediate medical attention required. Call emergency services or proceed to the emergency department.",
			},
			{
				Level: 2,
				Patterns: []string{
					"high fever", "severe pain", "vomiting blood",
					"head injury", "fracture", "allergic reaction",
					"intense pain", "cannot breathe", "jaundice",
					"confusion", "disorientation", "severe",
				},
				Explanation:       "Serious symptoms requiring urgent care.",
				RecommendedAction: "Urgent care needed. See a clinician within the next few hours.",
			},
			{
				Level: 3,
				Patterns: []string{
					"moderate pain", "persistent fever", "infection",
					"dizziness", "weakness", "nausea", "vomiting",
					"persistent",
				},
				Explanation:       "Symptoms require timely evaluation.",
				RecommendedAction: "Clinical evaluation recommended within 24 hours.",
			},
			{
				Level: 4,
				Patterns: []string{
					"mild pain", "cold", "cough", "headache", "fatigue",
					"mild", "minor",
				},
				Explanation:       "Minor symptoms detected.",
				RecommendedAction: "Routine appointment or self-care with monitoring.",
			},
		},
		VulnerableAgeUnder: 5,
		VulnerableAgeOver:  70,
		FeverTempC:         39,
		LowOxygenSat:       94,
		HighHeartRate:      120,
		LowHeartRate:       50,
		Confidence:         0.70,
	}
}

// Classifier is the rule-based triage engine. It is pure and stateless: safe
// for concurrent use, performs no I/O, and always returns a result.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier. A zero-tier config falls back to the
// defaults.
func NewClassifier(cfg Config) *Classifier {
	if len(cfg.Tiers) == 0 {
		cfg = DefaultConfig()
	}
	return &Classifier{cfg: cfg}
}

// Classify maps an encounter to an urgency assessment. It never fails: when
// no rule matches, the result is level 5 (Normal).
func (c *Classifier) Classify(in Input) Result {
	level := 5
	explanation := "Standard evaluation recommended."
	action := "Follow clinical protocols."

	text := strings.ToLower(in.Symptoms)
	if strings.TrimSpace(text) != "" {
	scan:
		for _, tier := range c.cfg.Tiers {
			for _, pattern := range tier.Patterns {
				if strings.Contains(text, pattern) {
					level = tier.Level
					explanation = tier.Explanation
					action = tier.RecommendedAction
					break scan
				}
			}
		}
	}

	// Age escalation runs before vitals; both can tighten the level but the
	// order is fixed for determinism.
	if (in.Age < c.cfg.VulnerableAgeUnder || in.Age > c.cfg.VulnerableAgeOver) && level > 1 {
		level--
		explanation += " Age factor increases priority."
	}

	if v := in.Vitals; v != nil {
		if v.Temperature != nil && *v.Temperature > c.cfg.FeverTempC && level > 2 {
			level--
			explanation += " High temperature noted."
		}
		// Desaturation is a direct set, not a decrement: it wins over every
		// prior adjustment.
		if v.OxygenSaturation != nil && *v.OxygenSaturation < c.cfg.LowOxygenSat {
			level = 1
			explanation += " Low oxygen saturation - critical concern."
		}
		if v.HeartRate != nil && (*v.HeartRate > c.cfg.HighHeartRate || *v.HeartRate < c.cfg.LowHeartRate) && level > 2 {
			level = 2
			explanation += " Abnormal heart rate detected."
		}
	}

	return Result{
		Level:             level,
		Category:          CategoryForLevel(level),
		Explanation:       explanation,
		Confidence:        c.cfg.Confidence,
		Source:            SourceRuleBased,
		RecommendedAction: action,
		Symptoms:          in.Symptoms,
	}
}
