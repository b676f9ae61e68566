// Package patient manages the patient registry backing triage and
// prescription records.
package patient

import (
	"errors"
	"time"
)

// Gender is the recorded patient gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Patient is a registered patient record.
type Patient struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Age              int        `json:"age"`
	Gender           Gender     `json:"gender"`
	Contact          string     `json:"contact,omitempty"`
	EmergencyContact string     `json:"emergencyContact,omitempty"`
	MedicalHistory   string     `json:"medicalHistory,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

// Validate checks a new patient record before it is stored.
func (p *Patient) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Age < 0 || p.Age > 150 {
		return errors.New("age must be between 0 and 150")
	}
	switch p.Gender {
	case GenderMale, GenderFemale, GenderOther:
	default:
		return errors.New("gender must be male, female or other")
	}
	return nil
}

// Update carries a partial patient update. Nil fields are left unchanged.
type Update struct {
	Name             *string `json:"name,omitempty"`
	Age              *int    `json:"age,omitempty"`
	Gender           *Gender `json:"gender,omitempty"`
	Contact          *string `json:"contact,omitempty"`
	EmergencyContact *string `json:"emergencyContact,omitempty"`
	MedicalHistory   *string `json:"medicalHistory,omitempty"`
}

// Apply folds the update into an existing record and validates the result.
func (u Update) Apply(p *Patient) error {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.Contact != nil {
		p.Contact = *u.Contact
	}
	if u.EmergencyContact != nil {
		p.EmergencyContact = *u.EmergencyContact
	}
	if u.MedicalHistory != nil {
		p.MedicalHistory = *u.MedicalHistory
	}
	return p.Validate()
}
