// Package triage implements patient triage assessment: input/result types and
// the rule-based urgency classifier used when remote inference is unavailable.
package triage

import (
	"encoding/json"
	"time"
)

// Gender is the reported patient gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Source marks which engine produced a result.
type Source string

const (
	SourceML        Source = "ml"
	SourceAI        Source = "ai"
	SourceRuleBased Source = "rule-based"
)

// Category is the urgency category label, in strict bijection with Level.
type Category string

const (
	CategoryEmergency Category = "Emergency"
	CategoryHigh      Category = "High"
	CategoryMedium    Category = "Medium"
	CategoryLow       Category = "Low"
	CategoryNormal    Category = "Normal"
)

// CategoryForLevel maps an urgency level (1 most urgent .. 5 routine) to its
// category label.
func CategoryForLevel(level int) Category {
	switch level {
	case 1:
		return CategoryEmergency
	case 2:
		return CategoryHigh
	case 3:
		return CategoryMedium
	case 4:
		return CategoryLow
	default:
		return CategoryNormal
	}
}

// Vitals holds optional vital sign measurements. Every field is individually
// optional; partial vitals are allowed.
type Vitals struct {
	BloodPressure    string   `json:"bloodPressure,omitempty"`
	HeartRate        *int     `json:"heartRate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	OxygenSaturation *int     `json:"oxygenSaturation,omitempty"`
}

// Input is a triage submission for one patient encounter.
type Input struct {
	PatientID   string  `json:"patientId,omitempty"`
	PatientName string  `json:"patientName"`
	Age         int     `json:"age"`
	Gender      Gender  `json:"gender"`
	Symptoms    string  `json:"symptoms"`
	Duration    string  `json:"duration"`
	Vitals      *Vitals `json:"vitals,omitempty"`
}

// Result is an urgency assessment. It is a value object: created per
// submission and never mutated afterwards.
type Result struct {
	Level             int      `json:"urgencyLevel"`
	Category          Category `json:"category"`
	Explanation       string   `json:"explanation"`
	Confidence        float64  `json:"confidence"`
	Source            Source   `json:"source"`
	RecommendedAction string   `json:"recommendedAction"`
	Symptoms          string   `json:"symptoms"`
}

// Record is a persisted triage result.
type Record struct {
	ID          string          `json:"id"`
	PatientID   string          `json:"patientId"`
	PatientName string          `json:"patientName"`
	Result      Result          `json:"result"`
	Vitals      json.RawMessage `json:"vitals,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
