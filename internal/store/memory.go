package store

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/adboardhq/adboard/internal/integration"
)

// Memory is an in-memory record store with an optional JSON snapshot file.
// Every mutating operation rewrites the full snapshot; a failed write is
// logged and does not roll back the in-memory mutation, so memory stays the
// source of truth for the process lifetime.
type Memory struct {
	mu      sync.RWMutex
	records map[string]integration.Record

	snapshotPath string
	fileMu       sync.Mutex
}

// NewMemory creates a store, replaying the snapshot file when one exists.
// An empty snapshotPath disables persistence entirely.
func NewMemory(snapshotPath string) *Memory {
	m := &Memory{
		records:      make(map[string]integration.Record),
		snapshotPath: snapshotPath,
	}
	m.loadSnapshot()
	return m
}

func (m *Memory) loadSnapshot() {
	if m.snapshotPath == "" {
		return
	}
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️ Failed to load token snapshot: %v", err)
		}
		return
	}
	var records map[string]integration.Record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("⚠️ Failed to parse token snapshot: %v", err)
		return
	}
	m.records = records
	log.Printf("📦 Loaded %d integration(s) from snapshot", len(records))
}

// snapshot writes the full record map to disk. It copies under a read lock
// so concurrent reads are never blocked by file IO.
func (m *Memory) snapshot() {
	if m.snapshotPath == "" {
		return
	}
	m.mu.RLock()
	records := make(map[string]integration.Record, len(m.records))
	for id, rec := range m.records {
		records[id] = rec
	}
	m.mu.RUnlock()

	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.Printf("⚠️ Failed to encode token snapshot: %v", err)
		return
	}
	if err := os.WriteFile(m.snapshotPath, data, 0o600); err != nil {
		log.Printf("⚠️ Failed to write token snapshot: %v", err)
	}
}

// Put inserts or overwrites the record keyed by its id.
func (m *Memory) Put(ctx context.Context, rec *integration.Record) error {
	m.mu.Lock()
	m.records[rec.ID] = *rec
	m.mu.Unlock()
	m.snapshot()
	return nil
}

// Get returns the record for id, or (nil, nil) when absent.
func (m *Memory) Get(ctx context.Context, id string) (*integration.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// ListByUser returns redacted projections for the user, newest first.
func (m *Memory) ListByUser(ctx context.Context, userID string) ([]integration.Redacted, error) {
	m.mu.RLock()
	out := make([]integration.Redacted, 0, 4)
	for _, rec := range m.records {
		if rec.UserID == userID {
			out = append(out, rec.Redact())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.After(out[j].ConnectedAt)
	})
	return out, nil
}

// Delete removes the record for id. The second of two racing deletes is a
// no-op returning false.
func (m *Memory) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	_, existed := m.records[id]
	delete(m.records, id)
	m.mu.Unlock()
	if existed {
		m.snapshot()
	}
	return existed, nil
}
