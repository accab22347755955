// Package timeline maintains the optimistic local view of each
// conversation's messages and reconciles it with the remote store.
//
// The remote store does not guarantee read-after-write consistency: a fetch
// issued right after a create may return fewer messages than the client
// already knows. The cache therefore treats the local view as authoritative
// whenever a fetch lags behind, and schedules exactly one delayed refetch
// instead of looping.
//
// The cache is mutated only through Append, Reconcile and Drop; all other
// components read snapshots.
package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kristentruong11/sun11this/internal/store"
)

// RefetchFunc is invoked (on a timer goroutine) when a lagging fetch was
// discarded and the remote store should be read again. Implementations
// typically fetch and call Reconcile with the result.
type RefetchFunc func(conversationID uuid.UUID)

// Config contains the cache dependencies.
type Config struct {
	Store  store.Client
	Logger *slog.Logger

	// RefetchDelay is the wait before the single delayed refetch after
	// lag detection. Zero means DefaultRefetchDelay.
	RefetchDelay time.Duration

	// Refetch is called at most once per detected lag. Nil disables the
	// delayed refetch (the syncing flag is still raised).
	Refetch RefetchFunc
}

// DefaultRefetchDelay matches the delay the client has always used before
// re-reading a lagging server view.
const DefaultRefetchDelay = 3 * time.Second

type entry struct {
	messages map[string]store.Message
	syncing  bool
	pending  *time.Timer // at most one scheduled refetch
}

// Cache is the per-conversation message synchronizer.
//
// Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	store        store.Client
	logger       *slog.Logger
	refetchDelay time.Duration
	refetch      RefetchFunc

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	closed  bool

	tempSeq atomic.Int64
}

// New creates a message cache.
func New(cfg Config) *Cache {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.RefetchDelay
	if delay <= 0 {
		delay = DefaultRefetchDelay
	}
	return &Cache{
		store:        cfg.Store,
		logger:       logger,
		refetchDelay: delay,
		refetch:      cfg.Refetch,
		entries:      make(map[uuid.UUID]*entry),
	}
}

// Append makes draft visible in the local cache immediately, then persists
// it through the store client.
//
// The optimistic entry is inserted under a temporary id before the create
// call is issued, so readers observe the message before any network round
// trip completes. On success the temporary entry is replaced by the
// server-returned message; if a concurrent fetch already pulled the same row
// the server copy wins and no duplicate remains. On failure the temporary
// entry is removed and the cache returns to its exact pre-call state; this
// component never retries.
func (c *Cache) Append(ctx context.Context, conversationID uuid.UUID, draft store.Message) (store.Message, error) {
	if err := store.ValidateDraft(draft); err != nil {
		return store.Message{}, err
	}

	tempID := store.TempIDPrefix + strconv.FormatInt(c.tempSeq.Add(1), 10)
	optimistic := draft
	optimistic.ID = tempID
	optimistic.ConversationID = conversationID

	c.mu.Lock()
	e := c.entry(conversationID)
	e.messages[tempID] = optimistic
	c.mu.Unlock()

	created, err := c.store.CreateMessage(ctx, optimistic)
	if err != nil {
		c.mu.Lock()
		delete(e.messages, tempID)
		c.mu.Unlock()
		c.logger.Warn("message create failed, rolled back optimistic entry",
			"conversation_id", conversationID,
			"temp_id", tempID,
			"error", err)
		return store.Message{}, fmt.Errorf("appending message: %w", err)
	}

	c.mu.Lock()
	delete(e.messages, tempID)
	// If a concurrent fetch raced ahead and already pulled this row,
	// overwriting by id deduplicates, keeping the server copy.
	e.messages[created.ID] = created
	c.mu.Unlock()

	c.logger.Debug("message persisted",
		"conversation_id", conversationID,
		"id", created.ID)
	return created, nil
}

// Reconcile merges a fetched message batch into the local cache and returns
// the merged, timestamp-ordered list.
//
// Lag rule: a batch smaller than the local cache is treated as a stale read
// — the batch is discarded, the local view stays authoritative, the syncing
// flag is raised and exactly one delayed refetch is scheduled. Exception: a
// smaller batch whose newest timestamp is not older than the local newest is
// a legitimate shrink (messages were deleted remotely) and is accepted,
// dropping persisted local entries absent from it.
//
// Reconcile is idempotent: applying the same batch twice yields the same
// result as once.
func (c *Cache) Reconcile(conversationID uuid.UUID, fetched []store.Message) []store.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(conversationID)
	localCount := len(e.messages)
	fetchedCount := len(fetched)

	if fetchedCount < localCount && localCount > 0 {
		if maxTimestamp(fetched).Before(latestTimestamp(e.messages)) {
			c.logger.Debug("fetch lags local cache, keeping local view",
				"conversation_id", conversationID,
				"local", localCount,
				"fetched", fetchedCount)
			e.syncing = true
			c.scheduleRefetchLocked(conversationID, e)
			return snapshot(e.messages)
		}

		// The batch is smaller but as fresh as anything known locally:
		// remote deletions, not lag. Unpersisted optimistic entries are
		// kept; persisted rows missing from the batch are dropped.
		c.logger.Debug("fetch shrank but is current, accepting deletions",
			"conversation_id", conversationID,
			"local", localCount,
			"fetched", fetchedCount)
		for id, m := range e.messages {
			if m.Persisted() {
				delete(e.messages, id)
			}
		}
	}

	for _, m := range fetched {
		e.messages[m.ID] = m
	}

	if fetchedCount >= localCount && e.syncing {
		c.logger.Debug("server caught up", "conversation_id", conversationID)
	}
	if fetchedCount >= localCount {
		e.syncing = false
	}

	return snapshot(e.messages)
}

// Messages returns the current merged view, ordered by timestamp ascending.
func (c *Cache) Messages(conversationID uuid.UUID) []store.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[conversationID]
	if !ok {
		return nil
	}
	return snapshot(e.messages)
}

// Syncing reports whether a lagging fetch was detected and the delayed
// refetch has not yet observed a caught-up server view.
func (c *Cache) Syncing(conversationID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[conversationID]
	return ok && e.syncing
}

// Drop removes the cache entry of a deleted conversation and cancels its
// pending refetch, if any.
func (c *Cache) Drop(conversationID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[conversationID]; ok && e.pending != nil {
		e.pending.Stop()
	}
	delete(c.entries, conversationID)
}

// Close cancels all pending refetch timers. The cache remains readable.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for _, e := range c.entries {
		if e.pending != nil {
			e.pending.Stop()
			e.pending = nil
		}
	}
}

// entry returns the conversation entry, creating it if needed.
// Caller must hold c.mu.
func (c *Cache) entry(conversationID uuid.UUID) *entry {
	e, ok := c.entries[conversationID]
	if !ok {
		e = &entry{messages: make(map[string]store.Message)}
		c.entries[conversationID] = e
	}
	return e
}

// scheduleRefetchLocked arms the single delayed refetch for a lagging
// conversation. A second lag detection while one is pending does not arm
// another. Caller must hold c.mu.
func (c *Cache) scheduleRefetchLocked(conversationID uuid.UUID, e *entry) {
	if c.refetch == nil || e.pending != nil || c.closed {
		return
	}
	e.pending = time.AfterFunc(c.refetchDelay, func() {
		c.mu.Lock()
		if cur, ok := c.entries[conversationID]; ok {
			cur.pending = nil
		}
		c.mu.Unlock()
		c.refetch(conversationID)
	})
}

func snapshot(messages map[string]store.Message) []store.Message {
	out := make([]store.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b store.Message) int {
		if a.Timestamp.Before(b.Timestamp) {
			return -1
		}
		if a.Timestamp.After(b.Timestamp) {
			return 1
		}
		// Equal timestamps: fall back to id so snapshots of the same
		// state are identical.
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

func maxTimestamp(messages []store.Message) time.Time {
	var max time.Time
	for _, m := range messages {
		if m.Timestamp.After(max) {
			max = m.Timestamp
		}
	}
	return max
}

func latestTimestamp(messages map[string]store.Message) time.Time {
	var max time.Time
	for _, m := range messages {
		// Unpersisted entries are in flight; they do not raise the bar
		// a fresh server read must clear.
		if !m.Persisted() {
			continue
		}
		if m.Timestamp.After(max) {
			max = m.Timestamp
		}
	}
	return max
}
