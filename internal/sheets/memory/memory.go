// Package memory keeps exported summaries in process. It backs tests and
// the exporter when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"homeledger/internal/report"
	"homeledger/internal/sheets"
)

var _ sheets.SummaryWriter = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
}

func New() *Store {
	return &Store{tabs: make(map[string][][]any)}
}

// WriteMonthlySummary replaces the summary's tab.
func (s *Store) WriteMonthlySummary(_ context.Context, sum report.MonthlySummary) (string, error) {
	tab := sheets.TabName(sum.Property.ID, sum.Period.Year, sum.Period.Month)
	rows := sheets.Rows(sum)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = rows
	s.writes++
	return fmt.Sprintf("mem:%s!A1:F%d", tab, len(rows)), nil
}

// Tab returns a copy of the rows written to tab.
func (s *Store) Tab(tab string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[tab]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), rows...), true
}

// Writes counts every WriteMonthlySummary call.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
