package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories"
	"hatchery_backend/pkg/utils"
)

// maxBatchCodeAttempts bounds the retries when a generated batch code is already taken.
const maxBatchCodeAttempts = 5

var thousand = decimal.NewFromInt(1000)

// CodeGenerator produces a candidate batch code for a source and start date.
type CodeGenerator func(source string, startDate time.Time) string

// RandomBatchCode builds BAT-{SP|PUR}-{YYYYMMDD}-{NNNN} with a random four-digit suffix.
func RandomBatchCode(source string, startDate time.Time) string {
	prefix := "PUR"
	if source == models.BatchSourceSpawn {
		prefix = "SP"
	}
	return fmt.Sprintf("BAT-%s-%s-%04d", prefix, startDate.Format("20060102"), 1000+rand.Intn(9000))
}

// --- DTOs ---

// CreateBatchRequest stocks a new batch into a tank.
type CreateBatchRequest struct {
	StartDate    string       `json:"start_date"`
	InitialCount models.Count `json:"initial_count"`
	TankID       int64        `json:"tank_id"`
	SpawnID      *int64       `json:"spawn_id"`
	Source       *string      `json:"source"`
	Notes        *string      `json:"notes"`
}

// RecordGrowthSampleRequest records an average weight sample.
type RecordGrowthSampleRequest struct {
	SampleDate string           `json:"sample_date"`
	AvgWeightG *decimal.Decimal `json:"avg_weight_g"`
	SampleSize models.Count     `json:"sample_size"`
	Notes      *string          `json:"notes"`
}

// MoveBatchRequest transfers a whole batch to another tank.
type MoveBatchRequest struct {
	ToTankID     int64   `json:"to_tank_id"`
	MovementDate string  `json:"movement_date"`
	Notes        *string `json:"notes"`
}

// BatchMoveResult is the movement audit row plus the moved batch.
type BatchMoveResult struct {
	Movement models.BatchMovement `json:"movement"`
	Batch    models.Batch         `json:"batch"`
}

// RecordSaleRequest sells fish out of a batch.
type RecordSaleRequest struct {
	CustomerID       int64            `json:"customer_id"`
	BatchID          int64            `json:"batch_id"`
	SaleDate         *string          `json:"sale_date"`
	QuantitySold     models.Count     `json:"quantity"`
	TotalWeightKg    *decimal.Decimal `json:"weight_kg"`
	PricePerPieceNGN *decimal.Decimal `json:"price_per_piece"`
	TotalAmountNGN   *decimal.Decimal `json:"total_amount"`
	PaymentStatus    *string          `json:"payment_status"`
	Notes            *string          `json:"notes"`
}

// SaleResult is the sale plus the batch after its count was decremented.
type SaleResult struct {
	Sale  models.Sale  `json:"sale"`
	Batch models.Batch `json:"batch"`
}

// UpdateBatchRequest is an administrative correction. Nil fields are left unchanged.
type UpdateBatchRequest struct {
	CurrentTankID   *int64           `json:"current_tank_id"`
	CurrentStage    *string          `json:"current_stage"`
	CurrentAvgSizeG *decimal.Decimal `json:"current_avg_size_g"`
	CurrentCount    *models.Count    `json:"current_count"`
	Status          *string          `json:"status"`
	Notes           *string          `json:"notes"`
}

// UpdateBatchResult carries data-entry warnings that did not block the update.
type UpdateBatchResult struct {
	Batch    models.Batch `json:"batch"`
	Warnings []string     `json:"warnings,omitempty"`
}

// --- BatchService Interface ---
type BatchService interface {
	CreateBatch(ctx context.Context, req CreateBatchRequest) (*models.Batch, error)
	RecordGrowthSample(ctx context.Context, batchID int64, req RecordGrowthSampleRequest) (*models.GrowthSample, error)
	MoveBatch(ctx context.Context, batchID int64, req MoveBatchRequest) (*BatchMoveResult, error)
	RecordSale(ctx context.Context, req RecordSaleRequest) (*SaleResult, error)
	UpdateBatch(ctx context.Context, batchID int64, req UpdateBatchRequest) (*UpdateBatchResult, error)
	GetBatch(ctx context.Context, batchID int64) (*models.Batch, error)
	ListBatches(ctx context.Context, filters models.BatchFilters) ([]models.Batch, error)
	ListSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, error)
}

type batchService struct {
	batchRepo    repositories.BatchRepository
	tankRepo     repositories.TankRepository
	customerRepo repositories.CustomerRepository
	salesRepo    repositories.SalesRepository
	tx           repositories.Transactor
	codes        CodeGenerator
	metrics      *metrics.Metrics
}

// NewBatchService creates a new instance of BatchService. A nil generator uses RandomBatchCode.
func NewBatchService(
	br repositories.BatchRepository,
	tr repositories.TankRepository,
	cr repositories.CustomerRepository,
	sr repositories.SalesRepository,
	tx repositories.Transactor,
	codes CodeGenerator,
	m *metrics.Metrics,
) BatchService {
	if codes == nil {
		codes = RandomBatchCode
	}
	return &batchService{
		batchRepo:    br,
		tankRepo:     tr,
		customerRepo: cr,
		salesRepo:    sr,
		tx:           tx,
		codes:        codes,
		metrics:      m,
	}
}

func (s *batchService) CreateBatch(ctx context.Context, req CreateBatchRequest) (result *models.Batch, err error) {
	defer func() { s.metrics.ObserveOperation("create_batch", outcomeOf(err)) }()

	if utils.IsEmpty(req.StartDate) {
		return nil, validationErrorf("start_date is required")
	}
	startDate, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return nil, ErrDateFormat
	}
	if req.InitialCount <= 0 {
		return nil, validationErrorf("initial_count must be greater than 0")
	}
	if req.TankID <= 0 {
		return nil, validationErrorf("tank_id is required")
	}
	source := models.BatchSourcePurchase
	if req.SpawnID != nil {
		source = models.BatchSourceSpawn
	}
	if req.Source != nil && !utils.IsEmpty(*req.Source) {
		source = strings.TrimSpace(*req.Source)
		if source != models.BatchSourceSpawn && source != models.BatchSourcePurchase {
			return nil, validationErrorf("source must be %s or %s", models.BatchSourceSpawn, models.BatchSourcePurchase)
		}
	}

	tank, err := s.tankRepo.GetTankByID(ctx, s.tx, req.TankID)
	if err != nil {
		return nil, notFoundOr(err, ErrTankNotFound)
	}

	for attempt := 1; attempt <= maxBatchCodeAttempts; attempt++ {
		batch := models.Batch{
			BatchCode:     s.codes(source, startDate),
			StartDate:     startDate,
			InitialCount:  req.InitialCount.Int(),
			CurrentCount:  req.InitialCount.Int(),
			CurrentTankID: &tank.ID,
			CurrentStage:  models.StageFry,
			Status:        models.BatchStatusActive,
			Source:        source,
			SpawnID:       req.SpawnID,
			Notes:         utils.TrimmedOrNil(req.Notes),
			TankName:      &tank.Name,
		}
		_, err = s.batchRepo.CreateBatch(ctx, s.tx, &batch)
		if err == nil {
			utils.LogInfo("Batch created", map[string]interface{}{
				"batch_id":      batch.ID,
				"batch_code":    batch.BatchCode,
				"initial_count": batch.InitialCount,
			})
			return &batch, nil
		}
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, notFoundOr(err, ErrTankNotFound)
		}
		utils.LogDebug("Batch code collision, retrying", map[string]interface{}{
			"batch_code": batch.BatchCode,
			"attempt":    attempt,
		})
	}
	utils.LogWarn("Giving up on batch code generation", map[string]interface{}{"attempts": maxBatchCodeAttempts})
	return nil, ErrDuplicateCode
}

func (s *batchService) RecordGrowthSample(ctx context.Context, batchID int64, req RecordGrowthSampleRequest) (result *models.GrowthSample, err error) {
	defer func() { s.metrics.ObserveOperation("record_growth_sample", outcomeOf(err)) }()

	if utils.IsEmpty(req.SampleDate) {
		return nil, validationErrorf("sample_date is required")
	}
	sampleDate, err := utils.ParseDate(req.SampleDate)
	if err != nil {
		return nil, ErrDateFormat
	}
	if req.AvgWeightG == nil || !req.AvgWeightG.IsPositive() {
		return nil, validationErrorf("avg_weight_g must be greater than 0")
	}
	if req.SampleSize <= 0 {
		return nil, validationErrorf("sample_size must be greater than 0")
	}

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		batch, err := s.batchRepo.LockBatch(ctx, tx, batchID)
		if err != nil {
			return notFoundOr(err, ErrBatchNotFound)
		}
		sample := models.GrowthSample{
			BatchID:    batchID,
			SampleDate: sampleDate,
			AvgWeightG: *req.AvgWeightG,
			SampleSize: req.SampleSize.Int(),
			Notes:      utils.TrimmedOrNil(req.Notes),
		}
		if _, err := s.batchRepo.CreateGrowthSample(ctx, tx, &sample); err != nil {
			return err
		}
		avg := *req.AvgWeightG
		batch.CurrentAvgSizeG = &avg
		if err := s.batchRepo.UpdateBatch(ctx, tx, batch); err != nil {
			return err
		}
		result = &sample
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *batchService) MoveBatch(ctx context.Context, batchID int64, req MoveBatchRequest) (result *BatchMoveResult, err error) {
	defer func() { s.metrics.ObserveOperation("move_batch", outcomeOf(err)) }()

	if req.ToTankID <= 0 {
		return nil, validationErrorf("to_tank_id is required")
	}
	if utils.IsEmpty(req.MovementDate) {
		return nil, validationErrorf("movement_date is required")
	}
	movementDate, err := utils.ParseDate(req.MovementDate)
	if err != nil {
		return nil, ErrDateFormat
	}

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		batch, err := s.batchRepo.LockBatch(ctx, tx, batchID)
		if err != nil {
			return notFoundOr(err, ErrBatchNotFound)
		}
		target, err := s.tankRepo.GetTankByID(ctx, tx, req.ToTankID)
		if err != nil {
			return notFoundOr(err, ErrTankNotFound)
		}
		if batch.CurrentTankID != nil && *batch.CurrentTankID == target.ID {
			return validationErrorf("batch is already in tank %s", target.Name)
		}

		movement := models.BatchMovement{
			BatchID:      batch.ID,
			FromTankID:   batch.CurrentTankID,
			ToTankID:     target.ID,
			MovementDate: movementDate,
			CountMoved:   batch.CurrentCount,
			Notes:        utils.TrimmedOrNil(req.Notes),
		}
		if _, err := s.batchRepo.CreateMovement(ctx, tx, &movement); err != nil {
			return notFoundOr(err, ErrTankNotFound)
		}
		batch.CurrentTankID = &target.ID
		batch.TankName = &target.Name
		if err := s.batchRepo.UpdateBatch(ctx, tx, batch); err != nil {
			return err
		}
		result = &BatchMoveResult{Movement: movement, Batch: *batch}
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Batch moved", map[string]interface{}{
		"batch_id":    batchID,
		"to_tank_id":  req.ToTankID,
		"count_moved": result.Movement.CountMoved,
	})
	return result, nil
}

func validPaymentStatus(status string) bool {
	switch status {
	case models.PaymentStatusPaid, models.PaymentStatusPending, models.PaymentStatusPartial:
		return true
	default:
		return false
	}
}

func (s *batchService) RecordSale(ctx context.Context, req RecordSaleRequest) (result *SaleResult, err error) {
	defer func() { s.metrics.ObserveOperation("record_sale", outcomeOf(err)) }()

	if req.QuantitySold <= 0 {
		return nil, validationErrorf("quantity must be greater than 0")
	}
	if req.CustomerID <= 0 {
		return nil, validationErrorf("customer_id is required")
	}
	if req.BatchID <= 0 {
		return nil, validationErrorf("batch_id is required")
	}
	if req.TotalAmountNGN == nil || req.TotalAmountNGN.IsNegative() {
		return nil, validationErrorf("total_amount is required and must be 0 or more")
	}
	if req.TotalWeightKg != nil && !req.TotalWeightKg.IsPositive() {
		return nil, validationErrorf("weight_kg must be greater than 0")
	}
	if req.PricePerPieceNGN != nil && req.PricePerPieceNGN.IsNegative() {
		return nil, validationErrorf("price_per_piece must be 0 or more")
	}
	paymentStatus := models.PaymentStatusPaid
	if req.PaymentStatus != nil && !utils.IsEmpty(*req.PaymentStatus) {
		paymentStatus = strings.TrimSpace(*req.PaymentStatus)
		if !validPaymentStatus(paymentStatus) {
			return nil, validationErrorf("payment_status must be Paid, Pending or Partial")
		}
	}
	saleDate := utils.Today()
	if req.SaleDate != nil && !utils.IsEmpty(*req.SaleDate) {
		if saleDate, err = utils.ParseDate(*req.SaleDate); err != nil {
			return nil, ErrDateFormat
		}
	}

	quantity := decimal.NewFromInt(int64(req.QuantitySold))
	sale := models.Sale{
		CustomerID:     req.CustomerID,
		BatchID:        req.BatchID,
		SaleDate:       saleDate,
		QuantitySold:   req.QuantitySold.Int(),
		TotalWeightKg:  req.TotalWeightKg,
		TotalAmountNGN: *req.TotalAmountNGN,
		PaymentStatus:  paymentStatus,
		Notes:          utils.TrimmedOrNil(req.Notes),
	}
	if req.TotalWeightKg != nil {
		avg := req.TotalWeightKg.Mul(thousand).Div(quantity).Round(2)
		sale.AvgSizeG = &avg
	}
	if req.PricePerPieceNGN != nil {
		sale.PricePerPieceNGN = *req.PricePerPieceNGN
	} else {
		sale.PricePerPieceNGN = req.TotalAmountNGN.Div(quantity).Round(2)
	}

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		customer, err := s.customerRepo.GetCustomerByID(ctx, tx, req.CustomerID)
		if err != nil {
			return notFoundOr(err, ErrCustomerNotFound)
		}
		batch, err := s.batchRepo.LockBatch(ctx, tx, req.BatchID)
		if err != nil {
			return notFoundOr(err, ErrBatchNotFound)
		}
		if req.QuantitySold.Int() > batch.CurrentCount {
			return fmt.Errorf("%w: requested %d, batch %s has %d", ErrInsufficientPopulation,
				req.QuantitySold, batch.BatchCode, batch.CurrentCount)
		}

		if _, err := s.salesRepo.CreateSale(ctx, tx, &sale); err != nil {
			return err
		}
		batch.CurrentCount -= req.QuantitySold.Int()
		if err := s.batchRepo.UpdateBatch(ctx, tx, batch); err != nil {
			return err
		}
		sale.CustomerName = customer.Name
		sale.BatchCode = batch.BatchCode
		result = &SaleResult{Sale: sale, Batch: *batch}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientPopulation) && !errors.Is(err, ErrNotFound) {
			utils.LogError(err, "Failed to record sale", map[string]interface{}{"batch_id": req.BatchID})
		}
		return nil, err
	}

	s.metrics.AddFishSold(req.QuantitySold.Int())
	utils.LogInfo("Sale recorded", map[string]interface{}{
		"sale_id":       result.Sale.ID,
		"batch_id":      req.BatchID,
		"quantity":      req.QuantitySold.Int(),
		"current_count": result.Batch.CurrentCount,
	})
	return result, nil
}

func validBatchStatus(status string) bool {
	return status == models.BatchStatusActive || models.IsTerminalBatchStatus(status)
}

func (s *batchService) UpdateBatch(ctx context.Context, batchID int64, req UpdateBatchRequest) (result *UpdateBatchResult, err error) {
	defer func() { s.metrics.ObserveOperation("update_batch", outcomeOf(err)) }()

	if req.CurrentAvgSizeG != nil && !req.CurrentAvgSizeG.IsPositive() {
		return nil, validationErrorf("current_avg_size_g must be greater than 0")
	}
	if req.CurrentStage != nil && !models.IsKnownStage(strings.TrimSpace(*req.CurrentStage)) {
		return nil, validationErrorf("unknown stage %q", *req.CurrentStage)
	}
	if req.Status != nil && !validBatchStatus(strings.TrimSpace(*req.Status)) {
		return nil, validationErrorf("unknown status %q", *req.Status)
	}

	var warnings []string
	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		batch, err := s.batchRepo.LockBatch(ctx, tx, batchID)
		if err != nil {
			return notFoundOr(err, ErrBatchNotFound)
		}

		if req.CurrentTankID != nil {
			tank, err := s.tankRepo.GetTankByID(ctx, tx, *req.CurrentTankID)
			if err != nil {
				return notFoundOr(err, ErrTankNotFound)
			}
			batch.CurrentTankID = &tank.ID
			batch.TankName = &tank.Name
		}
		if req.CurrentStage != nil {
			stage := strings.TrimSpace(*req.CurrentStage)
			if models.StageRank(stage) < models.StageRank(batch.CurrentStage) {
				warnings = append(warnings, fmt.Sprintf("stage moved backwards from %s to %s", batch.CurrentStage, stage))
			}
			batch.CurrentStage = stage
		}
		if req.CurrentAvgSizeG != nil {
			avg := *req.CurrentAvgSizeG
			batch.CurrentAvgSizeG = &avg
		}
		if req.CurrentCount != nil {
			count := req.CurrentCount.Int()
			if count < 0 || count > batch.InitialCount {
				return validationErrorf("current_count must be between 0 and %d", batch.InitialCount)
			}
			batch.CurrentCount = count
		}
		if req.Status != nil {
			status := strings.TrimSpace(*req.Status)
			if models.IsTerminalBatchStatus(batch.Status) && status == models.BatchStatusActive {
				return fmt.Errorf("%w: %s batches cannot return to %s", ErrInvalidTransition, batch.Status, status)
			}
			batch.Status = status
		}
		if req.Notes != nil {
			batch.Notes = utils.TrimmedOrNil(req.Notes)
		}

		if err := s.batchRepo.UpdateBatch(ctx, tx, batch); err != nil {
			return err
		}
		result = &UpdateBatchResult{Batch: *batch, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		utils.LogWarn("Batch update accepted with warning", map[string]interface{}{"batch_id": batchID, "warning": w})
	}
	return result, nil
}

func (s *batchService) GetBatch(ctx context.Context, batchID int64) (*models.Batch, error) {
	batch, err := s.batchRepo.GetBatchByID(ctx, s.tx, batchID)
	if err != nil {
		return nil, notFoundOr(err, ErrBatchNotFound)
	}
	if batch.GrowthSamples, err = s.batchRepo.ListGrowthSamples(ctx, batchID); err != nil {
		return nil, err
	}
	if batch.Movements, err = s.batchRepo.ListMovements(ctx, batchID); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *batchService) ListBatches(ctx context.Context, filters models.BatchFilters) ([]models.Batch, error) {
	return s.batchRepo.ListBatches(ctx, filters)
}

func (s *batchService) ListSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, error) {
	if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
		return nil, validationErrorf("end_date must not be before start_date")
	}
	return s.salesRepo.ListSales(ctx, filters)
}
