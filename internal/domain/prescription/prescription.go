// Package prescription implements prescription issuance and pharmacy-side
// verification by opaque hash.
package prescription

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Medication is one prescribed item.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
	Notes     string `json:"notes,omitempty"`
}

// Prescription is an issued prescription record.
type Prescription struct {
	ID               string       `json:"id"`
	PatientID        string       `json:"patientId"`
	PatientName      string       `json:"patientName"`
	DoctorID         string       `json:"doctorId"`
	DoctorName       string       `json:"doctorName"`
	Diagnosis        string       `json:"diagnosis"`
	Medications      []Medication `json:"medications"`
	Instructions     string       `json:"instructions"`
	VerificationHash string       `json:"verificationHash,omitempty"`
	FollowUpDate     *time.Time   `json:"followUpDate,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// Validate checks the minimum issuance requirements.
func (p *Prescription) Validate() error {
	if strings.TrimSpace(p.PatientName) == "" {
		return errors.New("patient name is required")
	}
	if strings.TrimSpace(p.Diagnosis) == "" {
		return errors.New("diagnosis is required")
	}
	if len(p.Medications) == 0 {
		return errors.New("at least one medication is required")
	}
	for _, m := range p.Medications {
		if m.Name == "" || m.Dosage == "" || m.Frequency == "" || m.Duration == "" {
			return errors.New("medication name, dosage, frequency and duration are required")
		}
	}
	if strings.TrimSpace(p.Instructions) == "" {
		return errors.New("instructions are required")
	}
	return nil
}

// GenerateHash derives the 12-character uppercase verification hash used by
// pharmacy-side lookup. The timestamp makes repeat issuance distinct.
func GenerateHash(patientID, doctorID string, issuedAt time.Time) string {
	data := patientID + "-" + doctorID + "-" + issuedAt.UTC().Format(time.RFC3339Nano)
	sum := sha256.Sum256([]byte(data))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:12])
}
