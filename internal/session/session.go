// Package session persists the last scroll position of each document.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/lockstep/internal/syncmode"
)

// ErrNotFound is returned by Load when no position is stored.
var ErrNotFound = errors.New("session position not found")

// documentNamespace scopes document ids.
var documentNamespace = uuid.MustParse("6f1d3c5e-2a7b-4c9e-8d1f-0b5a6e4c3d21")

// Position is the persisted scroll state of one document.
type Position struct {
	AnchorID      string        `json:"anchor_id,omitempty"`
	SourceLine    int           `json:"source_line"`
	EditorTopLine int           `json:"editor_top_line"`
	PreviewOffset float64       `json:"preview_offset"`
	Mode          syncmode.Mode `json:"mode"`
	SavedAt       time.Time     `json:"saved_at"`
}

// Store gets and sets the last position per document identity.
//
//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_store.go -package=mocks -source=session.go
type Store interface {
	Load(ctx context.Context, docID string) (Position, error)
	Save(ctx context.Context, docID string, pos Position) error
	Delete(ctx context.Context, docID string) error
}

// DocumentID returns a stable identity for the document at path.
func DocumentID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve document path: %w", err)
	}
	return uuid.NewSHA1(documentNamespace, []byte(filepath.Clean(abs))).String(), nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]Position
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]Position)}
}

// Load returns the stored position or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, docID string) (Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[docID]
	if !ok {
		return Position{}, ErrNotFound
	}
	return pos, nil
}

// Save stores pos.
func (s *MemoryStore) Save(_ context.Context, docID string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[docID] = pos
	return nil
}

// Delete removes the stored position. Deleting a missing id is not an error.
func (s *MemoryStore) Delete(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, docID)
	return nil
}
