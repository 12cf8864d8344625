package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charithe/calcengine/pkg/storage"
)

const (
	HistoryKey = "calculatorHistory"
	MaxHistory = 200

	persistTimeout = 2 * time.Second
)

var ErrHistoryIndex = errors.New("history index out of range")

// Entry is a committed calculation.
type Entry struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

// History is the ledger of committed calculations, oldest first internally. Every mutation is
// written through to the store; write failures are logged and otherwise ignored.
// Sessions of one profile share a History, so it is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	store   storage.Store
	entries []Entry
}

// LoadHistory restores the ledger saved in store. A nil store keeps the ledger in memory only.
func LoadHistory(ctx context.Context, store storage.Store) *History {
	h := &History{store: store}
	if store == nil {
		return h
	}

	raw, err := store.Get(ctx, HistoryKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			zap.S().Warnw("Failed to load history", "error", err)
		}
		return h
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		zap.S().Warnw("Discarding corrupt history", "error", err)
		return h
	}
	if len(entries) > MaxHistory {
		entries = entries[len(entries)-MaxHistory:]
	}
	h.entries = entries
	return h
}

func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if len(h.entries) > MaxHistory {
		h.entries = append(h.entries[:0:0], h.entries[len(h.entries)-MaxHistory:]...)
	}
	h.save()
}

// Entries returns the ledger most recent first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// Select returns the entry at index i, counted most recent first.
func (h *History) Select(i int) (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if i < 0 || i >= len(h.entries) {
		return Entry{}, fmt.Errorf("%w: %d not in [0, %d)", ErrHistoryIndex, i, len(h.entries))
	}
	return h.entries[len(h.entries)-1-i], nil
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
	h.save()
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// save writes the ledger while h.mu is held, so stores see mutations in order.
func (h *History) save() {
	if h.store == nil {
		return
	}

	entries := h.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		zap.S().Warnw("Failed to encode history", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := h.store.Set(ctx, HistoryKey, string(data)); err != nil {
		zap.S().Warnw("Failed to save history", "error", err)
	}
}
