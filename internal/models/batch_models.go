package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Growth stages, in the order a batch normally passes through them.
const (
	StageFry        = "Fry"
	StageFingerling = "Fingerling"
	StageJuvenile   = "Juvenile"
	StageMarketable = "Marketable"
)

// Batch statuses. Everything except Active is terminal.
const (
	BatchStatusActive    = "Active"
	BatchStatusHarvested = "Harvested"
	BatchStatusCombined  = "Combined"
	BatchStatusSold      = "Sold"
)

// Batch sources, used in the generated batch code.
const (
	BatchSourceSpawn    = "Spawn"
	BatchSourcePurchase = "Purchase"
)

// StageRank orders stages for reports. Unknown stages sort last.
func StageRank(stage string) int {
	switch stage {
	case StageFry:
		return 1
	case StageFingerling:
		return 2
	case StageJuvenile:
		return 3
	case StageMarketable:
		return 4
	default:
		return 5
	}
}

// IsKnownStage reports whether stage is one of the four growth stages.
func IsKnownStage(stage string) bool {
	return StageRank(stage) < 5
}

// IsTerminalBatchStatus reports whether a batch in this status can no longer return to Active.
func IsTerminalBatchStatus(status string) bool {
	switch status {
	case BatchStatusHarvested, BatchStatusCombined, BatchStatusSold:
		return true
	default:
		return false
	}
}

// Batch is a cohort of fish tracked from stocking to sale or harvest.
type Batch struct {
	ID              int64            `json:"id" db:"id"`
	BatchCode       string           `json:"batch_code" db:"batch_code"`
	StartDate       time.Time        `json:"start_date" db:"start_date"`
	InitialCount    int              `json:"initial_count" db:"initial_count"`
	CurrentCount    int              `json:"current_count" db:"current_count"`
	CurrentTankID   *int64           `json:"current_tank_id,omitempty" db:"current_tank_id"`
	CurrentStage    string           `json:"current_stage" db:"current_stage"`
	CurrentAvgSizeG *decimal.Decimal `json:"current_avg_size_g,omitempty" db:"current_avg_size_g"`
	Status          string           `json:"status" db:"status"`
	Source          string           `json:"source" db:"source"`
	SpawnID         *int64           `json:"spawn_id,omitempty" db:"spawn_id"`
	Notes           *string          `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
	TankName        *string          `json:"tank_name,omitempty"`
	GrowthSamples   []GrowthSample   `json:"growth_samples,omitempty"`
	Movements       []BatchMovement  `json:"movements,omitempty"`
}

// BatchFilters narrows ListBatches.
type BatchFilters struct {
	Status *string
	TankID *int64
}

// GrowthSample is a weight sample taken from a batch.
type GrowthSample struct {
	ID         int64           `json:"id" db:"id"`
	BatchID    int64           `json:"batch_id" db:"batch_id"`
	SampleDate time.Time       `json:"sample_date" db:"sample_date"`
	AvgWeightG decimal.Decimal `json:"avg_weight_g" db:"avg_weight_g"`
	SampleSize int             `json:"sample_size" db:"sample_size"`
	Notes      *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// BatchMovement records a batch being transferred between tanks.
type BatchMovement struct {
	ID           int64     `json:"id" db:"id"`
	BatchID      int64     `json:"batch_id" db:"batch_id"`
	FromTankID   *int64    `json:"from_tank_id,omitempty" db:"from_tank_id"`
	ToTankID     int64     `json:"to_tank_id" db:"to_tank_id"`
	MovementDate time.Time `json:"movement_date" db:"movement_date"`
	CountMoved   int       `json:"count_moved" db:"count_moved"`
	Notes        *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Tank is a physical holding unit (tank, pond, cage).
type Tank struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	TankType  *string   `json:"tank_type,omitempty" db:"tank_type"`
	CapacityL *int      `json:"capacity_l,omitempty" db:"capacity_l"`
	Status    string    `json:"status" db:"status"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
