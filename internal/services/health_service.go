package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories"
	"hatchery_backend/pkg/utils"
)

var maxPH = decimal.NewFromInt(14)

// LogHealthIssueRequest records an observation against a batch and/or tank.
type LogHealthIssueRequest struct {
	BatchID            *int64           `json:"batch_id"`
	TankID             *int64           `json:"tank_id"`
	LogDate            string           `json:"log_date"`
	LogTime            *string          `json:"log_time"`
	IssueType          string           `json:"issue_type"`
	Severity           string           `json:"severity"`
	MortalityCount     models.Count     `json:"mortality_count"`
	FishAffected       models.Count     `json:"fish_affected"`
	TemperatureC       *decimal.Decimal `json:"temperature_c"`
	PH                 *decimal.Decimal `json:"ph"`
	DissolvedOxygenMgL *decimal.Decimal `json:"dissolved_oxygen_mg_l"`
	AmmoniaMgL         *decimal.Decimal `json:"ammonia_mg_l"`
	Symptoms           *string          `json:"symptoms"`
	ActionTaken        *string          `json:"action_taken"`
}

// AddTreatmentRequest applies a medication in response to a health log.
type AddTreatmentRequest struct {
	TreatmentDate  *string          `json:"treatment_date"`
	MedicationName string           `json:"medication_name"`
	Dosage         *string          `json:"dosage"`
	CostNGN        *decimal.Decimal `json:"cost_ngn"`
	AppliedBy      *string          `json:"applied_by"`
	Notes          *string          `json:"notes"`
}

// TreatmentResult is the new treatment plus the annotated health log.
type TreatmentResult struct {
	Treatment models.Treatment `json:"treatment"`
	HealthLog models.HealthLog `json:"health_log"`
}

type HealthService interface {
	// LogHealthIssue never changes the batch population; mortality is tracked on the log only.
	LogHealthIssue(ctx context.Context, caller string, req LogHealthIssueRequest) (*models.HealthLog, error)
	AddTreatment(ctx context.Context, healthLogID int64, caller string, req AddTreatmentRequest) (*TreatmentResult, error)
	GetHealthLog(ctx context.Context, healthLogID int64) (*models.HealthLog, error)
	ListHealthLogs(ctx context.Context, filters models.HealthLogFilters) ([]models.HealthLog, error)
}

type healthService struct {
	healthRepo  repositories.HealthRepository
	batchRepo   repositories.BatchRepository
	tankRepo    repositories.TankRepository
	expenseRepo repositories.ExpenseRepository
	tx          repositories.Transactor
	metrics     *metrics.Metrics
}

// NewHealthService creates a new instance of HealthService.
func NewHealthService(
	hr repositories.HealthRepository,
	br repositories.BatchRepository,
	tr repositories.TankRepository,
	er repositories.ExpenseRepository,
	tx repositories.Transactor,
	m *metrics.Metrics,
) HealthService {
	return &healthService{healthRepo: hr, batchRepo: br, tankRepo: tr, expenseRepo: er, tx: tx, metrics: m}
}

// AppendTreatmentMarker appends "[Treated: <medication>]" to an action_taken text.
func AppendTreatmentMarker(actionTaken *string, medication string) string {
	marker := fmt.Sprintf("[Treated: %s]", medication)
	existing := strings.TrimSpace(utils.StringValue(actionTaken))
	if existing == "" {
		return marker
	}
	return existing + " " + marker
}

func (s *healthService) LogHealthIssue(ctx context.Context, caller string, req LogHealthIssueRequest) (result *models.HealthLog, err error) {
	defer func() { s.metrics.ObserveOperation("log_health_issue", outcomeOf(err)) }()

	if utils.IsEmpty(req.LogDate) {
		return nil, validationErrorf("log_date is required")
	}
	logDate, err := utils.ParseDate(req.LogDate)
	if err != nil {
		return nil, ErrDateFormat
	}
	logTime := utils.TrimmedOrNil(req.LogTime)
	if logTime != nil {
		if _, err := time.Parse("15:04", *logTime); err != nil {
			return nil, validationErrorf("log_time must use the HH:MM format")
		}
	}
	issueType := strings.TrimSpace(req.IssueType)
	if issueType == "" {
		return nil, validationErrorf("issue_type is required")
	}
	severity := strings.TrimSpace(req.Severity)
	if models.SeverityRank(severity) == 0 {
		return nil, validationErrorf("severity must be Low, Medium, High or Critical")
	}
	if req.MortalityCount < 0 || req.FishAffected < 0 {
		return nil, validationErrorf("mortality_count and fish_affected must be 0 or more")
	}
	if req.PH != nil && (req.PH.IsNegative() || req.PH.GreaterThan(maxPH)) {
		return nil, validationErrorf("ph must be between 0 and 14")
	}
	if (req.DissolvedOxygenMgL != nil && req.DissolvedOxygenMgL.IsNegative()) ||
		(req.AmmoniaMgL != nil && req.AmmoniaMgL.IsNegative()) {
		return nil, validationErrorf("water readings must be 0 or more")
	}
	loggedBy := strings.TrimSpace(caller)
	if loggedBy == "" {
		loggedBy = "system"
	}

	var batchCode, tankName *string
	if req.BatchID != nil {
		batch, err := s.batchRepo.GetBatchByID(ctx, s.tx, *req.BatchID)
		if err != nil {
			return nil, notFoundOr(err, ErrBatchNotFound)
		}
		batchCode = &batch.BatchCode
	}
	if req.TankID != nil {
		tank, err := s.tankRepo.GetTankByID(ctx, s.tx, *req.TankID)
		if err != nil {
			return nil, notFoundOr(err, ErrTankNotFound)
		}
		tankName = &tank.Name
	}

	healthLog := &models.HealthLog{
		BatchID:            req.BatchID,
		TankID:             req.TankID,
		LogDate:            logDate,
		LogTime:            logTime,
		IssueType:          issueType,
		Severity:           severity,
		MortalityCount:     req.MortalityCount.Int(),
		FishAffected:       req.FishAffected.Int(),
		TemperatureC:       req.TemperatureC,
		PH:                 req.PH,
		DissolvedOxygenMgL: req.DissolvedOxygenMgL,
		AmmoniaMgL:         req.AmmoniaMgL,
		Symptoms:           utils.TrimmedOrNil(req.Symptoms),
		ActionTaken:        utils.TrimmedOrNil(req.ActionTaken),
		LoggedBy:           loggedBy,
		BatchCode:          batchCode,
		TankName:           tankName,
	}
	if _, err := s.healthRepo.CreateHealthLog(ctx, s.tx, healthLog); err != nil {
		return nil, notFoundOr(err, ErrBatchNotFound)
	}

	fields := map[string]interface{}{
		"health_log_id": healthLog.ID,
		"severity":      severity,
		"issue_type":    issueType,
		"mortality":     req.MortalityCount.Int(),
		"logged_by":     loggedBy,
	}
	if models.SeverityRank(severity) >= models.SeverityRank(models.SeverityHigh) {
		utils.LogWarn("Health issue logged", fields)
	} else {
		utils.LogInfo("Health issue logged", fields)
	}
	return healthLog, nil
}

func (s *healthService) AddTreatment(ctx context.Context, healthLogID int64, caller string, req AddTreatmentRequest) (result *TreatmentResult, err error) {
	defer func() { s.metrics.ObserveOperation("add_treatment", outcomeOf(err)) }()

	medication := strings.TrimSpace(req.MedicationName)
	if medication == "" {
		return nil, validationErrorf("medication_name is required")
	}
	cost := decimal.Zero
	if req.CostNGN != nil {
		if req.CostNGN.IsNegative() {
			return nil, validationErrorf("cost_ngn must be 0 or more")
		}
		cost = *req.CostNGN
	}
	treatmentDate := utils.Today()
	if req.TreatmentDate != nil && !utils.IsEmpty(*req.TreatmentDate) {
		if treatmentDate, err = utils.ParseDate(*req.TreatmentDate); err != nil {
			return nil, ErrDateFormat
		}
	}
	appliedBy := utils.TrimmedOrNil(req.AppliedBy)
	if appliedBy == nil {
		appliedBy = utils.NewNullString(strings.TrimSpace(caller))
	}

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		healthLog, err := s.healthRepo.LockHealthLog(ctx, tx, healthLogID)
		if err != nil {
			return notFoundOr(err, ErrHealthLogNotFound)
		}
		treatment := models.Treatment{
			HealthLogID:    healthLogID,
			TreatmentDate:  treatmentDate,
			MedicationName: medication,
			Dosage:         utils.TrimmedOrNil(req.Dosage),
			CostNGN:        cost,
			AppliedBy:      appliedBy,
			Notes:          utils.TrimmedOrNil(req.Notes),
		}
		if _, err := s.healthRepo.CreateTreatment(ctx, tx, &treatment); err != nil {
			return err
		}

		action := AppendTreatmentMarker(healthLog.ActionTaken, medication)
		if err := s.healthRepo.UpdateActionTaken(ctx, tx, healthLogID, action); err != nil {
			return err
		}
		healthLog.ActionTaken = &action

		if cost.IsPositive() {
			categoryID, err := s.expenseRepo.EnsureCategory(ctx, tx, models.ExpenseCategoryTreatment)
			if err != nil {
				return err
			}
			expense := models.Expense{
				AmountNGN:   cost,
				CategoryID:  categoryID,
				ExpenseDate: treatmentDate,
				Description: fmt.Sprintf("Treatment: %s (health log #%d)", medication, healthLogID),
				BatchID:     healthLog.BatchID,
			}
			if _, err := s.expenseRepo.CreateExpense(ctx, tx, &expense); err != nil {
				return err
			}
		}

		result = &TreatmentResult{Treatment: treatment, HealthLog: *healthLog}
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Treatment added", map[string]interface{}{
		"health_log_id": healthLogID,
		"medication":    medication,
		"cost_ngn":      cost.String(),
	})
	return result, nil
}

func (s *healthService) GetHealthLog(ctx context.Context, healthLogID int64) (*models.HealthLog, error) {
	healthLog, err := s.healthRepo.GetHealthLogByID(ctx, s.tx, healthLogID)
	if err != nil {
		return nil, notFoundOr(err, ErrHealthLogNotFound)
	}
	if healthLog.Treatments, err = s.healthRepo.ListTreatments(ctx, healthLogID); err != nil {
		return nil, err
	}
	return healthLog, nil
}

func (s *healthService) ListHealthLogs(ctx context.Context, filters models.HealthLogFilters) ([]models.HealthLog, error) {
	if filters.Severity != nil && *filters.Severity != "" && models.SeverityRank(*filters.Severity) == 0 {
		return nil, validationErrorf("unknown severity %q", *filters.Severity)
	}
	return s.healthRepo.ListHealthLogs(ctx, filters)
}
