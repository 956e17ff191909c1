package history

import (
	"context"
	"fmt"
	"sync"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
)

// MemoryRepository keeps a capped, per-token ring of recent analyses. History
// is session-scoped by design; nothing survives a restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	byToken map[string][]*analysis.Record
	byID    map[analysis.RecordID]*analysis.Record
	cap     int
}

func NewMemoryRepository(capPerToken int) *MemoryRepository {
	if capPerToken <= 0 {
		capPerToken = 100
	}
	return &MemoryRepository{
		byToken: make(map[string][]*analysis.Record),
		byID:    make(map[analysis.RecordID]*analysis.Record),
		cap:     capPerToken,
	}
}

func (r *MemoryRepository) Save(_ context.Context, rec *analysis.Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record must have an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append([]*analysis.Record{rec}, r.byToken[rec.Token]...)
	if len(list) > r.cap {
		for _, evicted := range list[r.cap:] {
			delete(r.byID, evicted.ID)
		}
		list = list[:r.cap]
	}
	r.byToken[rec.Token] = list
	r.byID[rec.ID] = rec
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, token string, id analysis.RecordID) (*analysis.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok || rec.Token != token {
		return nil, nil
	}
	return rec, nil
}

func (r *MemoryRepository) Latest(_ context.Context, token string, limit int) ([]*analysis.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byToken[token]
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]*analysis.Record, len(list))
	copy(out, list)
	return out, nil
}
