// Package app is the UI-facing facade. It owns the timeline cache, the turn
// orchestrator and the current-conversation selection, and exposes the small
// operation set a front end needs: send a message, switch conversations,
// read the merged view.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kristentruong11/sun11this/internal/generate"
	"github.com/kristentruong11/sun11this/internal/kb"
	"github.com/kristentruong11/sun11this/internal/state"
	"github.com/kristentruong11/sun11this/internal/store"
	"github.com/kristentruong11/sun11this/internal/timeline"
	"github.com/kristentruong11/sun11this/internal/turn"
)

// refetchTimeout bounds the background refetch triggered by lag detection.
const refetchTimeout = 10 * time.Second

// Config contains the app dependencies. All capability selection happens
// here, once; nothing downstream switches implementations at runtime.
type Config struct {
	Store     store.Client
	Lookup    kb.Lookup
	Generator generate.Generator
	State     *state.Store
	Logger    *slog.Logger

	GradeMin     int
	GradeMax     int
	RefetchDelay time.Duration
}

func (c Config) validate() error {
	if c.Store == nil {
		return errors.New("app: store client is required")
	}
	if c.Lookup == nil {
		return errors.New("app: knowledge lookup is required")
	}
	if c.Generator == nil {
		return errors.New("app: generator is required")
	}
	if c.State == nil {
		return errors.New("app: state store is required")
	}
	return nil
}

// App coordinates conversations for one user session.
//
// App is safe for concurrent use; at most one turn runs per conversation at
// a time, while different conversations proceed independently.
type App struct {
	store  store.Client
	cache  *timeline.Cache
	orch   *turn.Orchestrator
	state  *state.Store
	logger *slog.Logger

	mu      sync.Mutex
	current uuid.UUID
	locks   map[uuid.UUID]*sync.Mutex
}

// New creates the app facade.
func New(cfg Config) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		store:  cfg.Store,
		state:  cfg.State,
		logger: logger,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}

	a.cache = timeline.New(timeline.Config{
		Store:        cfg.Store,
		Logger:       logger,
		RefetchDelay: cfg.RefetchDelay,
		Refetch:      a.backgroundRefetch,
	})

	orch, err := turn.New(turn.Config{
		Store:     cfg.Store,
		Lookup:    cfg.Lookup,
		Generator: cfg.Generator,
		Timeline:  a.cache,
		State:     cfg.State,
		Logger:    logger,
		GradeMin:  cfg.GradeMin,
		GradeMax:  cfg.GradeMax,
	})
	if err != nil {
		return nil, err
	}
	a.orch = orch
	return a, nil
}

// Close releases timers held by the timeline cache.
func (a *App) Close() {
	a.cache.Close()
}

// SendMessage runs one turn against the current conversation, creating one
// lazily when none is selected. The newly created conversation becomes
// current.
func (a *App) SendMessage(ctx context.Context, content string) (turn.Result, error) {
	target, lock := a.acquireTurnLock()
	defer lock.Unlock()

	res, err := a.orch.HandleTurn(ctx, target, content)
	if err != nil {
		return res, err
	}
	if res.Created != nil {
		a.mu.Lock()
		a.current = res.ConversationID
		a.mu.Unlock()
	}
	return res, nil
}

// SelectConversation makes a conversation current and returns its merged
// message view after reconciling a fresh fetch. A fetch failure leaves the
// cache untouched and returns the error alongside the cached view.
func (a *App) SelectConversation(ctx context.Context, conversationID uuid.UUID) ([]store.Message, error) {
	a.mu.Lock()
	a.current = conversationID
	a.mu.Unlock()

	return a.RefreshMessages(ctx, conversationID)
}

// NewConversation clears the current selection. The conversation record
// itself is created lazily by the first SendMessage.
func (a *App) NewConversation() {
	a.mu.Lock()
	a.current = uuid.Nil
	a.mu.Unlock()
}

// Current returns the currently selected conversation id, uuid.Nil when a
// fresh conversation is pending.
func (a *App) Current() uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// DeleteConversation removes the conversation everywhere: the remote store,
// the timeline cache, and the client state files. A deleted current
// conversation resets the selection.
func (a *App) DeleteConversation(ctx context.Context, conversationID uuid.UUID) error {
	if err := a.store.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	a.cache.Drop(conversationID)
	a.state.DropConversation(conversationID)

	a.mu.Lock()
	if a.current == conversationID {
		a.current = uuid.Nil
	}
	delete(a.locks, conversationID)
	a.mu.Unlock()

	a.logger.Info("conversation deleted", "conversation_id", conversationID)
	return nil
}

// Conversations lists conversations for the sidebar, newest activity first.
func (a *App) Conversations(ctx context.Context) ([]store.Conversation, error) {
	convs, err := a.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].LastMessageAt.After(convs[j].LastMessageAt)
	})
	return convs, nil
}

// MergedMessages returns the cached timeline view of a conversation.
func (a *App) MergedMessages(conversationID uuid.UUID) []store.Message {
	return a.cache.Messages(conversationID)
}

// IsSyncing reports whether the conversation is waiting out a lagging
// server view.
func (a *App) IsSyncing(conversationID uuid.UUID) bool {
	return a.cache.Syncing(conversationID)
}

// RefreshMessages fetches the conversation from the store and reconciles
// the result into the timeline cache. On fetch failure the cache is left
// untouched and the current merged view is returned with the error.
func (a *App) RefreshMessages(ctx context.Context, conversationID uuid.UUID) ([]store.Message, error) {
	fetched, err := a.store.ListMessages(ctx, conversationID, store.DefaultMessageLimit)
	if err != nil {
		return a.cache.Messages(conversationID), fmt.Errorf("fetching messages: %w", err)
	}
	return a.cache.Reconcile(conversationID, fetched), nil
}

// backgroundRefetch is the timeline's delayed-refetch hook.
func (a *App) backgroundRefetch(conversationID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), refetchTimeout)
	defer cancel()

	if _, err := a.RefreshMessages(ctx, conversationID); err != nil {
		a.logger.Warn("delayed refetch failed",
			"conversation_id", conversationID, "error", err)
	}
}

// acquireTurnLock locks the turn mutex of the current conversation and
// returns the selection it locked. The selection is re-read once the lock is
// held: a concurrent first send may have just created the conversation this
// one belongs in, so a stale pre-lock read would fork a second conversation.
func (a *App) acquireTurnLock() (uuid.UUID, *sync.Mutex) {
	for {
		a.mu.Lock()
		target := a.current
		lock := a.lockForLocked(target)
		a.mu.Unlock()

		lock.Lock()
		a.mu.Lock()
		current := a.current
		a.mu.Unlock()
		if current == target {
			return target, lock
		}
		lock.Unlock()
	}
}

// lockForLocked returns the per-conversation turn lock. Caller holds a.mu.
func (a *App) lockForLocked(conversationID uuid.UUID) *sync.Mutex {
	l, ok := a.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[conversationID] = l
	}
	return l
}
