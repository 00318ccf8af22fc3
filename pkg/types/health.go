package types

import "time"

// HealthProfile holds the patient attributes the scoring stage conditions on.
type HealthProfile struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Gender     string   `json:"gender"`
	HeightCm   float64  `json:"heightCm"`
	WeightKg   float64  `json:"weightKg"`
	BloodGroup string   `json:"bloodGroup"`
	Conditions []string `json:"conditions,omitempty"`
	Allergies  []string `json:"allergies,omitempty"`
}

// SymptomEntry is one self-reported symptom with its severity on a 1..10 scale.
type SymptomEntry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Severity   int       `json:"severity"`
	Notes      string    `json:"notes,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// MedicationEntry is one medication the patient currently takes.
type MedicationEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// ScoreRequest bundles everything the scorer sees for one assessment.
type ScoreRequest struct {
	Profile     HealthProfile     `json:"profile"`
	Symptoms    []SymptomEntry    `json:"symptoms,omitempty"`
	Medications []MedicationEntry `json:"medications,omitempty"`
	History     []string          `json:"history,omitempty"`
}

// HealthScore is the structured output of the scoring stage.
type HealthScore struct {
	HealthScore     int      `json:"healthScore"`
	Summary         string   `json:"summary"`
	RiskFactors     []string `json:"riskFactors"`
	Recommendations []string `json:"recommendations"`
	DoctorSpecialty string   `json:"doctorSpecialty"`
	Urgency         string   `json:"urgency"`
}

// Urgency bands a HealthScore may carry.
const (
	UrgencyLow       = "Low"
	UrgencyModerate  = "Moderate"
	UrgencyHigh      = "High"
	UrgencyEmergency = "Emergency"
)
