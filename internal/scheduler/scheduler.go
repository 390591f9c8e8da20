package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/models"
)

const digestTimeout = 2 * time.Minute

// InventoryLister is the part of the feed service the digest reads.
type InventoryLister interface {
	ListInventory(ctx context.Context) ([]models.FeedInventory, error)
}

// SummaryProvider is the part of the finance service the digest reads.
type SummaryProvider interface {
	GetFinancialSummary(ctx context.Context) (*models.FinancialSummary, error)
}

// Digest is what one run found.
type Digest struct {
	LowStock []models.FeedInventory
	Summary  *models.FinancialSummary
}

// Scheduler runs the periodic read-only digest.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	inventory InventoryLister
	finance   SummaryProvider
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewScheduler creates a new scheduler instance. spec is a standard 5-field cron expression.
func NewScheduler(spec string, inventory InventoryLister, finance SummaryProvider, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		spec:      spec,
		inventory: inventory,
		finance:   finance,
		metrics:   m,
		logger:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the digest job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runScheduled); err != nil {
		return fmt.Errorf("scheduling digest %q: %w", s.spec, err)
	}
	s.logger.Info().Str("cron", s.spec).Msg("starting scheduler")
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running digest to finish.
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
	defer cancel()
	if _, err := s.RunDigest(ctx); err != nil {
		s.logger.Error().Err(err).Msg("digest failed")
	}
}

// RunDigest logs feed items below the low-stock threshold and the current
// financial summary. It never writes to the ledger.
func (s *Scheduler) RunDigest(ctx context.Context) (*Digest, error) {
	items, err := s.inventory.ListInventory(ctx)
	if err != nil {
		s.metrics.ObserveDigest("error")
		return nil, fmt.Errorf("listing feed inventory: %w", err)
	}
	digest := &Digest{}
	for _, item := range items {
		s.metrics.SetFeedStock(item.FeedName, item.CurrentStockKg.InexactFloat64())
		if item.LowStock {
			digest.LowStock = append(digest.LowStock, item)
			s.logger.Warn().
				Int64("inventory_id", item.ID).
				Str("feed", item.FeedName).
				Str("stock_kg", item.CurrentStockKg.String()).
				Msg("feed stock low")
		}
	}

	summary, err := s.finance.GetFinancialSummary(ctx)
	if err != nil {
		s.metrics.ObserveDigest("error")
		return nil, fmt.Errorf("computing financial summary: %w", err)
	}
	digest.Summary = summary
	s.logger.Info().
		Str("revenue_ngn", summary.TotalRevenueNGN.String()).
		Str("expenses_ngn", summary.TotalExpensesNGN.String()).
		Str("net_profit_ngn", summary.NetProfitNGN.String()).
		Str("outstanding_ngn", summary.OutstandingReceivables.String()).
		Int("low_stock_items", len(digest.LowStock)).
		Msg("daily digest")

	s.metrics.ObserveDigest("ok")
	return digest, nil
}
