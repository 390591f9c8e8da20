package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories"
)

func (st *memoryState) joinBatch(b models.Batch) *models.Batch {
	b.TankName = nil
	if b.CurrentTankID != nil {
		if t, ok := st.tanks[*b.CurrentTankID]; ok {
			name := t.Name
			b.TankName = &name
		}
	}
	b.GrowthSamples = nil
	b.Movements = nil
	return &b
}

func (s *Store) CreateBatch(ctx context.Context, executor repositories.SQLExecutor, batch *models.Batch) (int64, error) {
	err := s.exec(executor, "CreateBatch", func(st *memoryState) error {
		for _, existing := range st.batches {
			if existing.BatchCode == batch.BatchCode {
				return fmt.Errorf("%w: batch code '%s'", repositories.ErrDuplicateKey, batch.BatchCode)
			}
		}
		if batch.CurrentTankID != nil {
			if _, ok := st.tanks[*batch.CurrentTankID]; !ok {
				return fmt.Errorf("%w: batch references a missing tank", repositories.ErrNotFound)
			}
		}
		now := time.Now()
		batch.ID = st.newID()
		batch.CreatedAt = now
		batch.UpdatedAt = now
		st.batches[batch.ID] = *batch
		return nil
	})
	if err != nil {
		return 0, err
	}
	return batch.ID, nil
}

func (s *Store) GetBatchByID(ctx context.Context, executor repositories.SQLExecutor, batchID int64) (*models.Batch, error) {
	return s.getBatch(executor, "GetBatchByID", batchID)
}

func (s *Store) LockBatch(ctx context.Context, executor repositories.SQLExecutor, batchID int64) (*models.Batch, error) {
	return s.getBatch(executor, "LockBatch", batchID)
}

func (s *Store) getBatch(executor repositories.SQLExecutor, method string, batchID int64) (*models.Batch, error) {
	var out *models.Batch
	err := s.exec(executor, method, func(st *memoryState) error {
		b, ok := st.batches[batchID]
		if !ok {
			return repositories.ErrNotFound
		}
		out = st.joinBatch(b)
		return nil
	})
	return out, err
}

func (s *Store) UpdateBatch(ctx context.Context, executor repositories.SQLExecutor, batch *models.Batch) error {
	return s.exec(executor, "UpdateBatch", func(st *memoryState) error {
		current, ok := st.batches[batch.ID]
		if !ok {
			return repositories.ErrNotFound
		}
		if batch.CurrentCount < 0 || batch.CurrentCount > current.InitialCount {
			return fmt.Errorf("%w: current_count check violated", repositories.ErrDatabaseError)
		}
		if batch.CurrentTankID != nil {
			if _, ok := st.tanks[*batch.CurrentTankID]; !ok {
				return fmt.Errorf("%w: batch references a missing tank", repositories.ErrNotFound)
			}
		}
		current.CurrentCount = batch.CurrentCount
		current.CurrentTankID = batch.CurrentTankID
		current.CurrentStage = batch.CurrentStage
		current.CurrentAvgSizeG = batch.CurrentAvgSizeG
		current.Status = batch.Status
		current.Notes = batch.Notes
		current.UpdatedAt = time.Now()
		st.batches[batch.ID] = current
		batch.UpdatedAt = current.UpdatedAt
		return nil
	})
}

func (s *Store) ListBatches(ctx context.Context, filters models.BatchFilters) ([]models.Batch, error) {
	batches := []models.Batch{}
	err := s.read("ListBatches", func(st *memoryState) error {
		for _, b := range st.batches {
			if filters.Status != nil && *filters.Status != "" && b.Status != *filters.Status {
				continue
			}
			if filters.TankID != nil && (b.CurrentTankID == nil || *b.CurrentTankID != *filters.TankID) {
				continue
			}
			batches = append(batches, *st.joinBatch(b))
		}
		return nil
	})
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].StartDate.Equal(batches[j].StartDate) {
			return batches[i].StartDate.After(batches[j].StartDate)
		}
		return batches[i].ID > batches[j].ID
	})
	return batches, err
}

func (s *Store) CreateGrowthSample(ctx context.Context, executor repositories.SQLExecutor, sample *models.GrowthSample) (int64, error) {
	err := s.exec(executor, "CreateGrowthSample", func(st *memoryState) error {
		if _, ok := st.batches[sample.BatchID]; !ok {
			return repositories.ErrNotFound
		}
		sample.ID = st.newID()
		sample.CreatedAt = time.Now()
		st.samples = append(st.samples, *sample)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sample.ID, nil
}

func (s *Store) ListGrowthSamples(ctx context.Context, batchID int64) ([]models.GrowthSample, error) {
	samples := []models.GrowthSample{}
	err := s.read("ListGrowthSamples", func(st *memoryState) error {
		for _, sm := range st.samples {
			if sm.BatchID == batchID {
				samples = append(samples, sm)
			}
		}
		return nil
	})
	sort.SliceStable(samples, func(i, j int) bool {
		if !samples[i].SampleDate.Equal(samples[j].SampleDate) {
			return samples[i].SampleDate.After(samples[j].SampleDate)
		}
		return samples[i].ID > samples[j].ID
	})
	return samples, err
}

func (s *Store) CreateMovement(ctx context.Context, executor repositories.SQLExecutor, movement *models.BatchMovement) (int64, error) {
	err := s.exec(executor, "CreateMovement", func(st *memoryState) error {
		if _, ok := st.batches[movement.BatchID]; !ok {
			return repositories.ErrNotFound
		}
		if _, ok := st.tanks[movement.ToTankID]; !ok {
			return fmt.Errorf("%w: movement references a missing tank", repositories.ErrNotFound)
		}
		movement.ID = st.newID()
		movement.CreatedAt = time.Now()
		st.movements = append(st.movements, *movement)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return movement.ID, nil
}

func (s *Store) ListMovements(ctx context.Context, batchID int64) ([]models.BatchMovement, error) {
	movements := []models.BatchMovement{}
	err := s.read("ListMovements", func(st *memoryState) error {
		for _, m := range st.movements {
			if m.BatchID == batchID {
				movements = append(movements, m)
			}
		}
		return nil
	})
	sort.SliceStable(movements, func(i, j int) bool {
		if !movements[i].MovementDate.Equal(movements[j].MovementDate) {
			return movements[i].MovementDate.After(movements[j].MovementDate)
		}
		return movements[i].ID > movements[j].ID
	})
	return movements, err
}
