// Package state holds the fetched records and the last fetch error for the
// running process. Each slice of state has exactly one update entry point
// (SetRecords, SetError); readers take snapshots.
package state

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/seenimoa/incomeview/internal/statement"
	"github.com/seenimoa/incomeview/pkg/models"
)

// Source fetches the record sequence for one symbol. *fmp.Client satisfies
// it through an adapter in the caller.
type Source interface {
	Records(ctx context.Context, symbol string) ([]models.FinancialRecord, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, symbol string) ([]models.FinancialRecord, error)

func (f SourceFunc) Records(ctx context.Context, symbol string) ([]models.FinancialRecord, error) {
	return f(ctx, symbol)
}

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	Symbol    string                   `json:"symbol"`
	Records   []models.FinancialRecord `json:"records"`
	Err       string                   `json:"error,omitempty"`
	FetchedAt time.Time                `json:"fetched_at"`
}

// State is the application state shared by renderers. The zero value is an
// empty state with no error.
type State struct {
	refreshMu sync.Mutex // held for a whole Refresh attempt

	mu        sync.RWMutex
	symbol    string
	records   []models.FinancialRecord
	err       string
	fetchedAt time.Time
}

// New creates an empty state for symbol.
func New(symbol string) *State {
	return &State{symbol: symbol, records: []models.FinancialRecord{}}
}

// SetRecords replaces the record sequence wholesale. The slice is copied so
// later changes by the caller are not observed.
func (s *State) SetRecords(records []models.FinancialRecord) {
	cp := slices.Clone(records)
	if cp == nil {
		cp = []models.FinancialRecord{}
	}
	s.mu.Lock()
	s.records = cp
	s.fetchedAt = time.Now()
	s.mu.Unlock()
}

// SetError records the message of the last failed fetch. An empty message
// clears it. Records are left untouched.
func (s *State) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

// Err returns the last fetch error message, or "".
func (s *State) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := slices.Clone(s.records)
	if records == nil {
		records = []models.FinancialRecord{}
	}
	return Snapshot{
		Symbol:    s.symbol,
		Records:   records,
		Err:       s.err,
		FetchedAt: s.fetchedAt,
	}
}

// View runs the filter/sort pipeline over the current records.
func (s *State) View(filter statement.FilterSpec, sort statement.SortSpec) []models.FinancialRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statement.Apply(s.records, filter, sort)
}

// Refresh performs one fetch attempt: it clears the error, fetches, then
// either replaces the records or sets the error message leaving prior
// records in place. The fetch error is returned as well. Attempts are
// serialised, so the records/error pair always reflects the latest one.
func (s *State) Refresh(ctx context.Context, src Source) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.SetError("")

	start := time.Now()
	records, err := src.Records(ctx, s.symbol)
	if err != nil {
		log.Printf("state: fetch %s failed: %v", s.symbol, err)
		s.SetError(err.Error())
		return err
	}
	log.Printf("state: fetched %d records for %s in %s", len(records), s.symbol, time.Since(start).Round(time.Millisecond))
	s.SetRecords(records)
	return nil
}
