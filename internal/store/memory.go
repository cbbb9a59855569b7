package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*BatchFile
	byHash map[string]uuid.UUID
	now    func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[uuid.UUID]*BatchFile),
		byHash: make(map[string]uuid.UUID),
		now:    time.Now,
	}
}

// SaveBatch implements Store.
func (m *Memory) SaveBatch(ctx context.Context, imp Import) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	if err := imp.Validate(); err != nil {
		return uuid.Nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byHash[imp.ContentHash]; ok {
		return uuid.Nil, ErrDuplicateFile
	}
	bf := summarize(uuid.New(), imp, m.now())
	m.byID[bf.ID] = bf
	m.byHash[imp.ContentHash] = bf.ID
	return bf.ID, nil
}

// BatchFile implements Store.
func (m *Memory) BatchFile(ctx context.Context, id uuid.UUID) (*BatchFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bf, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *bf
	return &cp, nil
}

// Len returns the number of stored batch files.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Close implements Store.
func (m *Memory) Close() {}

func summarize(id uuid.UUID, imp Import, at time.Time) *BatchFile {
	res := imp.Result
	return &BatchFile{
		ID:            id,
		CompanyID:     imp.CompanyID,
		Filename:      imp.Filename,
		ContentHash:   imp.ContentHash,
		Family:        string(res.Family),
		LayoutVersion: res.LayoutVersion,
		State:         res.State.String(),
		ReceiptCount:  len(res.Receipts),
		WarningCount:  len(warningRows(res)),
		ImportedAt:    at,
	}
}
