package chain

import (
	"context"
	"sync"

	"github.com/elys-network/ammcore/internal/types"
)

// DefaultJournalCapacity bounds how many receipts a MemoryJournal keeps.
const DefaultJournalCapacity = 1024

// MemoryJournal keeps the most recent committed receipts in memory. It backs the
// receipts API when no audit database is configured.
type MemoryJournal struct {
	mu       sync.RWMutex
	capacity int
	receipts []types.Receipt // oldest first
}

// NewMemoryJournal creates a journal holding at most capacity receipts.
func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &MemoryJournal{capacity: capacity}
}

// Record implements Sink.
func (j *MemoryJournal) Record(_ context.Context, receipt types.Receipt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.receipts = append(j.receipts, receipt)
	if over := len(j.receipts) - j.capacity; over > 0 {
		j.receipts = append([]types.Receipt(nil), j.receipts[over:]...)
	}
	return nil
}

// Recent returns up to limit receipts, newest first.
func (j *MemoryJournal) Recent(limit int) []types.Receipt {
	return j.filter(limit, func(types.Receipt) bool { return true })
}

// ForAccount returns up to limit receipts touching account, newest first.
func (j *MemoryJournal) ForAccount(account types.Address, limit int) []types.Receipt {
	return j.filter(limit, func(r types.Receipt) bool {
		for _, a := range r.Accounts() {
			if a == string(account) {
				return true
			}
		}
		return false
	})
}

// Get returns the receipt with the given id.
func (j *MemoryJournal) Get(id string) (types.Receipt, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for i := len(j.receipts) - 1; i >= 0; i-- {
		if j.receipts[i].ID == id {
			return j.receipts[i], true
		}
	}
	return types.Receipt{}, false
}

// Len returns the number of receipts held.
func (j *MemoryJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.receipts)
}

func (j *MemoryJournal) filter(limit int, keep func(types.Receipt) bool) []types.Receipt {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if limit <= 0 || limit > j.capacity {
		limit = j.capacity
	}
	var out []types.Receipt
	for i := len(j.receipts) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(j.receipts[i]) {
			out = append(out, j.receipts[i])
		}
	}
	return out
}
