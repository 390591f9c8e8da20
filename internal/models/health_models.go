package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Severity levels, lowest first.
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// SeverityRank returns 1..4 for known severities and 0 otherwise.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// HealthLog is an observation of a health or water-quality issue.
// Only ActionTaken changes after creation, when a treatment is added.
type HealthLog struct {
	ID                 int64            `json:"id" db:"id"`
	BatchID            *int64           `json:"batch_id,omitempty" db:"batch_id"`
	TankID             *int64           `json:"tank_id,omitempty" db:"tank_id"`
	LogDate            time.Time        `json:"log_date" db:"log_date"`
	LogTime            *string          `json:"log_time,omitempty" db:"log_time"`
	IssueType          string           `json:"issue_type" db:"issue_type"`
	Severity           string           `json:"severity" db:"severity"`
	MortalityCount     int              `json:"mortality_count" db:"mortality_count"`
	FishAffected       int              `json:"fish_affected" db:"fish_affected"`
	TemperatureC       *decimal.Decimal `json:"temperature_c,omitempty" db:"temperature_c"`
	PH                 *decimal.Decimal `json:"ph,omitempty" db:"ph"`
	DissolvedOxygenMgL *decimal.Decimal `json:"dissolved_oxygen_mg_l,omitempty" db:"dissolved_oxygen_mg_l"`
	AmmoniaMgL         *decimal.Decimal `json:"ammonia_mg_l,omitempty" db:"ammonia_mg_l"`
	Symptoms           *string          `json:"symptoms,omitempty" db:"symptoms"`
	ActionTaken        *string          `json:"action_taken,omitempty" db:"action_taken"`
	LoggedBy           string           `json:"logged_by" db:"logged_by"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	BatchCode          *string          `json:"batch_code,omitempty"`
	TankName           *string          `json:"tank_name,omitempty"`
	Treatments         []Treatment      `json:"treatments,omitempty"`
}

// HealthLogFilters narrows ListHealthLogs.
type HealthLogFilters struct {
	BatchID  *int64
	TankID   *int64
	Severity *string
}

// Treatment is a medication applied in response to a health log.
type Treatment struct {
	ID             int64           `json:"id" db:"id"`
	HealthLogID    int64           `json:"health_log_id" db:"health_log_id"`
	TreatmentDate  time.Time       `json:"treatment_date" db:"treatment_date"`
	MedicationName string          `json:"medication_name" db:"medication_name"`
	Dosage         *string         `json:"dosage,omitempty" db:"dosage"`
	CostNGN        decimal.Decimal `json:"cost_ngn" db:"cost_ngn"`
	AppliedBy      *string         `json:"applied_by,omitempty" db:"applied_by"`
	Notes          *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
