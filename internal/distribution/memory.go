package distribution

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryTxKey struct{}

type memoryTx struct {
	locked  []*sync.Mutex
	pending []*Declaration
}

// MemoryRepository is a process-local Repository. Case locks are held until
// the transaction that took them ends.
type MemoryRepository struct {
	mu        sync.RWMutex
	byCase    map[uuid.UUID][]*Declaration
	caseLocks sync.Map // uuid.UUID -> *sync.Mutex
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byCase: make(map[uuid.UUID][]*Declaration)}
}

// BeginTx implements Repository
func (r *MemoryRepository) BeginTx(ctx context.Context) (context.Context, error) {
	if _, ok := ctx.Value(memoryTxKey{}).(*memoryTx); ok {
		return nil, errors.New("transaction already in progress")
	}
	return context.WithValue(ctx, memoryTxKey{}, &memoryTx{}), nil
}

// CommitTx implements Repository
func (r *MemoryRepository) CommitTx(ctx context.Context) error {
	tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx)
	if !ok {
		return errors.New("no transaction in progress")
	}
	r.mu.Lock()
	for _, d := range tx.pending {
		r.byCase[d.CaseID] = append(r.byCase[d.CaseID], d)
	}
	r.mu.Unlock()
	tx.pending = nil
	tx.release()
	return nil
}

// RollbackTx implements Repository
func (r *MemoryRepository) RollbackTx(ctx context.Context) error {
	tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx)
	if !ok {
		return errors.New("no transaction in progress")
	}
	tx.pending = nil
	tx.release()
	return nil
}

func (tx *memoryTx) release() {
	for _, m := range tx.locked {
		m.Unlock()
	}
	tx.locked = nil
}

// LockCase implements Repository
func (r *MemoryRepository) LockCase(ctx context.Context, caseID uuid.UUID) error {
	tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx)
	if !ok {
		return errors.New("case lock requires a transaction")
	}
	m, _ := r.caseLocks.LoadOrStore(caseID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	tx.locked = append(tx.locked, mu)
	return nil
}

// CreateDeclaration implements Repository
func (r *MemoryRepository) CreateDeclaration(ctx context.Context, d *Declaration) error {
	stored := cloneDeclaration(d)
	if tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx); ok {
		tx.pending = append(tx.pending, stored)
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCase[d.CaseID] = append(r.byCase[d.CaseID], stored)
	return nil
}

// GetDeclaration implements Repository
func (r *MemoryRepository) GetDeclaration(_ context.Context, caseID, id uuid.UUID) (*Declaration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.byCase[caseID] {
		if d.ID == id {
			return cloneDeclaration(d), nil
		}
	}
	return nil, ErrDeclarationNotFound
}

// ListDeclarations implements Repository
func (r *MemoryRepository) ListDeclarations(_ context.Context, caseID uuid.UUID) ([]*Declaration, error) {
	r.mu.RLock()
	stored := r.byCase[caseID]
	out := make([]*Declaration, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, cloneDeclaration(stored[i]))
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DeclaredDate.After(out[j].DeclaredDate)
	})
	return out, nil
}

// DeleteDeclaration implements Repository
func (r *MemoryRepository) DeleteDeclaration(_ context.Context, caseID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.byCase[caseID]
	for i, d := range stored {
		if d.ID == id {
			r.byCase[caseID] = append(stored[:i:i], stored[i+1:]...)
			return nil
		}
	}
	return ErrDeclarationNotFound
}

func cloneDeclaration(d *Declaration) *Declaration {
	c := *d
	c.Lines = append([]Line(nil), d.Lines...)
	c.Inactive = append([]Claim(nil), d.Inactive...)
	return &c
}
