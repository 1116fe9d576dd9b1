// Package journal records uploaded content that never received a ledger record,
// so operators can reconcile or garbage-collect it later.
package journal

import (
	"context"
	"slices"
	"sync"

	"github.com/ruteri/credential-registry/interfaces"
)

// MemoryJournal keeps orphan records in memory.
type MemoryJournal struct {
	mu      sync.Mutex
	records []interfaces.OrphanRecord
}

// NewMemoryJournal creates an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Record(ctx context.Context, rec interfaces.OrphanRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *MemoryJournal) List(ctx context.Context) ([]interfaces.OrphanRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := slices.Clone(j.records)
	if out == nil {
		out = []interfaces.OrphanRecord{}
	}
	return out, nil
}
