// Package drugcheck implements drug-batch authenticity verification: the
// input/result types and the rule-based classifier used when the remote image
// analysis service is unavailable.
package drugcheck

import "time"

// Status is the verification verdict.
type Status string

const (
	StatusAuthentic   Status = "authentic"
	StatusSuspicious  Status = "suspicious"
	StatusCounterfeit Status = "counterfeit"
	StatusUnknown     Status = "unknown"
)

// Source marks which engine produced a result.
type Source string

const (
	SourceML        Source = "ml"
	SourceRuleBased Source = "rule-based"
)

// Input is a verification request. Image is opaque to the rule-based path; it
// is only meaningful to the remote analysis service.
type Input struct {
	DrugName     string `json:"drugName,omitempty"`
	BatchNumber  string `json:"batchNumber,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Image        []byte `json:"-"`
}

// Details holds optional supplementary fields on a result.
type Details struct {
	Manufacturer string `json:"manufacturer"`
}

// Result is a verification verdict. Invariant: IsAuthentic is true iff Status
// is StatusAuthentic.
type Result struct {
	DrugName    string   `json:"drugName"`
	BatchNumber string   `json:"batchNumber,omitempty"`
	IsAuthentic bool     `json:"isAuthentic"`
	Confidence  float64  `json:"confidence"`
	Status      Status   `json:"verificationStatus"`
	Warning     string   `json:"warningMessage,omitempty"`
	Source      Source   `json:"source"`
	Details     *Details `json:"details,omitempty"`
}

// Record is a persisted verification result.
type Record struct {
	ID         string    `json:"id"`
	Result     Result    `json:"result"`
	VerifiedBy string    `json:"verifiedBy,omitempty"`
	CreatedAt  time.Time `json:"verifiedAt"`
}
