// Package memory provides an in-memory implementation of every repository
// interface, used by the service and router tests.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories"
)

// Compile-time contract assertions.
var (
	_ repositories.Transactor         = (*Store)(nil)
	_ repositories.FeedRepository     = (*Store)(nil)
	_ repositories.BatchRepository    = (*Store)(nil)
	_ repositories.SalesRepository    = (*Store)(nil)
	_ repositories.HealthRepository   = (*Store)(nil)
	_ repositories.ExpenseRepository  = (*Store)(nil)
	_ repositories.TankRepository     = (*Store)(nil)
	_ repositories.CustomerRepository = (*Store)(nil)
	_ repositories.WorkerRepository   = (*Store)(nil)
	_ repositories.AuthRepository     = (*Store)(nil)
)

// errUnsupported is returned by the raw SQL methods; the store only speaks repository calls.
var errUnsupported = errors.New("memory store: raw SQL is not supported")

type userRecord struct {
	user         models.User
	passwordHash string
}

type memoryState struct {
	nextID      int64
	feedTypes   map[int64]models.FeedType
	inventory   map[int64]models.FeedInventory
	purchases   []models.FeedPurchase
	feedingLogs []models.FeedingLog
	batches     map[int64]models.Batch
	samples     []models.GrowthSample
	movements   []models.BatchMovement
	sales       []models.Sale
	healthLogs  map[int64]models.HealthLog
	treatments  []models.Treatment
	categories  map[int64]models.ExpenseCategory
	expenses    []models.Expense
	tanks       map[int64]models.Tank
	customers   map[int64]models.Customer
	workers     map[int64]models.Worker
	users       map[int64]userRecord
}

func newMemoryState() *memoryState {
	return &memoryState{
		feedTypes:  make(map[int64]models.FeedType),
		inventory:  make(map[int64]models.FeedInventory),
		batches:    make(map[int64]models.Batch),
		healthLogs: make(map[int64]models.HealthLog),
		categories: make(map[int64]models.ExpenseCategory),
		tanks:      make(map[int64]models.Tank),
		customers:  make(map[int64]models.Customer),
		workers:    make(map[int64]models.Worker),
		users:      make(map[int64]userRecord),
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		nextID:      s.nextID,
		feedTypes:   cloneMap(s.feedTypes),
		inventory:   cloneMap(s.inventory),
		purchases:   append([]models.FeedPurchase(nil), s.purchases...),
		feedingLogs: append([]models.FeedingLog(nil), s.feedingLogs...),
		batches:     cloneMap(s.batches),
		samples:     append([]models.GrowthSample(nil), s.samples...),
		movements:   append([]models.BatchMovement(nil), s.movements...),
		sales:       append([]models.Sale(nil), s.sales...),
		healthLogs:  cloneMap(s.healthLogs),
		treatments:  append([]models.Treatment(nil), s.treatments...),
		categories:  cloneMap(s.categories),
		expenses:    append([]models.Expense(nil), s.expenses...),
		tanks:       cloneMap(s.tanks),
		customers:   cloneMap(s.customers),
		workers:     cloneMap(s.workers),
		users:       cloneMap(s.users),
	}
}

func (s *memoryState) newID() int64 {
	s.nextID++
	return s.nextID
}

// Store is a mutex-guarded ledger. Transactions run against a clone of the
// state which replaces the live state only when the unit of work succeeds.
type Store struct {
	mu    sync.Mutex
	state *memoryState

	faultsMu sync.Mutex
	faults   map[string]error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newMemoryState(), faults: make(map[string]error)}
}

// Tx is the executor handed to WithinTx callbacks.
type Tx struct {
	store *Store
	state *memoryState
}

// FailOn makes every subsequent call of the named repository method return err.
// Pass a nil error to clear it.
func (s *Store) FailOn(method string, err error) {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

func (s *Store) fault(method string) error {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	return s.faults[method]
}

// WithinTx serializes units of work. The callback must only use the executor it is given.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repositories.SQLExecutor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{store: s, state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// exec runs fn against the transaction's state when executor is one of this
// store's transactions, and against the live state otherwise.
func (s *Store) exec(executor repositories.SQLExecutor, method string, fn func(st *memoryState) error) error {
	if err := s.fault(method); err != nil {
		return err
	}
	if tx, ok := executor.(*Tx); ok && tx.store == s {
		return fn(tx.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// read runs fn against the live state for the list and sum methods, which take no executor.
func (s *Store) read(method string, fn func(st *memoryState) error) error {
	if err := s.fault(method); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *Store) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errUnsupported
}

func (s *Store) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (s *Store) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errUnsupported
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errUnsupported
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errUnsupported
}
