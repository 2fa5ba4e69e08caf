// Package store provides ScheduleStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/apr-engine/loan"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	schedules map[string]*loan.Ledger
}

func NewMemory() *Memory {
	return &Memory{schedules: make(map[string]*loan.Ledger)}
}

func (m *Memory) SaveSchedule(_ context.Context, loanID string, ledger *loan.Ledger) error {
	if loanID == "" {
		return loan.ErrMissingScheduleID
	}
	if ledger == nil || len(ledger.Entries) == 0 {
		return loan.ErrEmptyAmortizationTable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[loanID] = cloneLedger(ledger)
	return nil
}

func (m *Memory) LoadSchedule(_ context.Context, loanID string) (*loan.Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.schedules[loanID]
	if !ok {
		return nil, nil
	}
	return cloneLedger(stored), nil
}

func (m *Memory) ListLoanIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.schedules))
	for id := range m.schedules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// cloneLedger deep-copies so callers cannot mutate stored state through
// a returned pointer.
func cloneLedger(l *loan.Ledger) *loan.Ledger {
	c := *l
	c.Entries = make([]loan.Entry, len(l.Entries))
	copy(c.Entries, l.Entries)
	for i := range c.Entries {
		if d := c.Entries[i].PaidDate; d != nil {
			dd := *d
			c.Entries[i].PaidDate = &dd
		}
	}
	return &c
}
