// Package turn sequences one conversational turn: persist the user message,
// resolve the lesson context, branch on the request kind, generate or format
// the reply, and persist the assistant message. Failures after the user
// message is safely stored degrade to a persisted assistant error turn so
// the conversation never silently loses a reply.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kristentruong11/sun11this/internal/generate"
	"github.com/kristentruong11/sun11this/internal/kb"
	"github.com/kristentruong11/sun11this/internal/lesson"
	"github.com/kristentruong11/sun11this/internal/state"
	"github.com/kristentruong11/sun11this/internal/store"
	"github.com/kristentruong11/sun11this/internal/timeline"
)

// ErrEmptyMessage rejects blank input before any I/O.
var ErrEmptyMessage = errors.New("message is empty")

// titleMaxRunes bounds the lazily derived conversation title.
const titleMaxRunes = 50

// trueFalsePageSize is how many true/false items one turn shows.
const trueFalsePageSize = 3

// Config contains the orchestrator dependencies.
type Config struct {
	Store     store.Client
	Lookup    kb.Lookup
	Generator generate.Generator
	Timeline  *timeline.Cache
	State     *state.Store
	Logger    *slog.Logger

	// GradeMin/GradeMax bound coordinate extraction. Zero values default
	// to the supported curriculum range.
	GradeMin int
	GradeMax int
}

func (c Config) validate() error {
	if c.Store == nil {
		return errors.New("turn: store client is required")
	}
	if c.Lookup == nil {
		return errors.New("turn: knowledge lookup is required")
	}
	if c.Generator == nil {
		return errors.New("turn: generator is required")
	}
	if c.Timeline == nil {
		return errors.New("turn: timeline cache is required")
	}
	if c.State == nil {
		return errors.New("turn: state store is required")
	}
	return nil
}

// Result reports what one turn produced.
type Result struct {
	ConversationID uuid.UUID

	// Created is the conversation record when this turn created it
	// lazily, nil otherwise.
	Created *store.Conversation

	// User is the persisted user message.
	User store.Message

	// Assistant is the persisted assistant message. It may be the zero
	// Message if the turn failed so hard that even the error turn could
	// not be written.
	Assistant store.Message
}

// Orchestrator runs conversational turns.
//
// Orchestrator itself is stateless between turns; callers must ensure at
// most one turn runs per conversation at a time (the app facade holds a
// per-conversation lock). Different conversations may run concurrently.
type Orchestrator struct {
	store    store.Client
	lookup   kb.Lookup
	gen      generate.Generator
	cache    *timeline.Cache
	state    *state.Store
	logger   *slog.Logger
	resolver *lesson.Resolver
}

// New creates a turn orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gradeMin, gradeMax := cfg.GradeMin, cfg.GradeMax
	if gradeMin == 0 {
		gradeMin = 10
	}
	if gradeMax == 0 {
		gradeMax = 12
	}
	return &Orchestrator{
		store:    cfg.Store,
		lookup:   cfg.Lookup,
		gen:      cfg.Generator,
		cache:    cfg.Timeline,
		state:    cfg.State,
		logger:   logger,
		resolver: lesson.NewResolver(cfg.Lookup, gradeMin, gradeMax),
	}, nil
}

// HandleTurn runs one turn. conversationID may be uuid.Nil, in which case a
// conversation is created lazily, titled from the message text.
//
// An error is returned only when the turn failed before the user message was
// safely persisted (empty input, conversation create failure, user message
// write failure); in those cases the store holds nothing from this turn.
// Later failures are converted into a persisted assistant error turn and a
// nil error.
func (o *Orchestrator) HandleTurn(ctx context.Context, conversationID uuid.UUID, content string) (Result, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return Result{}, ErrEmptyMessage
	}

	// Dangerous content never reaches resolution or generation, but both
	// the request and the refusal are recorded.
	if isDangerous(trimmed) {
		return o.refuseDangerous(ctx, conversationID, trimmed)
	}

	res := Result{ConversationID: conversationID}
	if res.ConversationID == uuid.Nil {
		conv, err := o.store.CreateConversation(ctx, newConversation(firstRunes(trimmed, titleMaxRunes)))
		if err != nil {
			return Result{}, fmt.Errorf("creating conversation: %w", err)
		}
		res.ConversationID = conv.ID
		res.Created = &conv
	}

	kind := Classify(trimmed)
	user, err := o.cache.Append(ctx, res.ConversationID, store.Message{
		ConversationID: res.ConversationID,
		Role:           store.RoleUser,
		Content:        trimmed,
		Timestamp:      time.Now(),
		Kind:           kind,
	})
	if err != nil {
		return res, fmt.Errorf("persisting user message: %w", err)
	}
	res.User = user

	reply, replyKind, ref, err := o.buildReply(ctx, res.ConversationID, trimmed, kind)
	if err != nil {
		o.logger.Error("turn failed after user message was persisted",
			"conversation_id", res.ConversationID,
			"kind", kind,
			"error", err)
		reply, replyKind, ref = errorReply(err), store.TurnText, nil
	}

	assistant, err := o.cache.Append(ctx, res.ConversationID, store.Message{
		ConversationID: res.ConversationID,
		Role:           store.RoleAssistant,
		Content:        reply,
		Timestamp:      time.Now(),
		Kind:           replyKind,
		LessonRef:      ref,
	})
	if err != nil {
		// The user turn is already stored; dropping the reply is the
		// least bad option left.
		o.logger.Error("persisting assistant message failed",
			"conversation_id", res.ConversationID,
			"error", err)
		return res, nil
	}
	res.Assistant = assistant
	return res, nil
}

// buildReply runs steps 3-7 of a turn: lesson resolution, branching, and
// reply production. It never writes messages itself.
func (o *Orchestrator) buildReply(ctx context.Context, conversationID uuid.UUID, trimmed string, kind store.TurnKind) (string, store.TurnKind, *store.LessonRef, error) {
	// Financial-advice requests get fixed general principles, no model
	// call.
	if isFinancialAdvice(trimmed) {
		return financialReply, store.TurnText, nil, nil
	}

	prior := o.state.LoadContext(conversationID)
	outcome, err := o.resolver.Resolve(ctx, trimmed, prior)
	if err != nil {
		return "", "", nil, err
	}
	o.logger.Debug("lesson resolved",
		"conversation_id", conversationID,
		"outcome", outcome.Kind.String(),
		"grade", outcome.Grade,
		"lesson", outcome.Lesson)

	var doc *kb.LessonDoc
	switch outcome.Kind {
	case lesson.KindAskForLesson:
		// The user is picking a (different) lesson; stale context must
		// not leak into the next turn.
		o.state.ClearContext(conversationID)
		return askForLessonReply, store.TurnText, nil, nil

	case lesson.KindSuggestions:
		return suggestionsReply(outcome.Suggestions), store.TurnText, nil, nil

	case lesson.KindNotFound:
		return notFoundReply(outcome.Lesson, outcome.Grade), store.TurnText, nil, nil

	case lesson.KindResolved:
		doc = outcome.Doc
		newCtx := lesson.Context{Grade: outcome.Grade, Lesson: outcome.Lesson, Title: doc.Title}
		if err := o.state.SaveContext(conversationID, newCtx); err != nil {
			o.logger.Warn("saving lesson context failed",
				"conversation_id", conversationID, "error", err)
		}

	case lesson.KindCarryForward:
		doc, err = o.lookup.ByCoordinate(ctx, outcome.Grade, outcome.Lesson)
		if err != nil {
			return "", "", nil, fmt.Errorf("looking up carried lesson (%d, %d): %w", outcome.Grade, outcome.Lesson, err)
		}
		if doc == nil {
			return notFoundReply(outcome.Lesson, outcome.Grade), store.TurnText, nil, nil
		}

	case lesson.KindOpen:
		// No grounding available; fall through with doc nil.
	}

	var ref *store.LessonRef
	if doc != nil {
		ref = &store.LessonRef{Grade: doc.Grade, Lesson: doc.Lesson, Title: doc.Title}
	}

	switch kind {
	case store.TurnImage:
		// No illustration backend is wired; answer honestly instead of
		// generating text that pretends to be an image.
		return imageUnavailableReply, store.TurnImage, ref, nil

	case store.TurnTrueFalse:
		if doc == nil {
			return selectLessonFirstReply, store.TurnText, nil, nil
		}
		reply, err := o.trueFalseBatch(ctx, conversationID, doc)
		if err != nil {
			return "", "", nil, err
		}
		return reply, store.TurnTrueFalse, ref, nil

	case store.TurnQuiz:
		if doc == nil {
			return o.generateReply(ctx, openPrompt(trimmed), store.TurnQuiz, ref)
		}
		return o.generateReply(ctx, quizPrompt(doc, trimmed), store.TurnQuiz, ref)

	case store.TurnFlashcard:
		if doc == nil {
			return o.generateReply(ctx, openPrompt(trimmed), store.TurnFlashcard, ref)
		}
		return o.generateReply(ctx, flashcardPrompt(doc, trimmed), store.TurnFlashcard, ref)

	default:
		if doc == nil || wantsOpenSearch(kb.Fold(trimmed)) {
			return o.generateReply(ctx, openPrompt(trimmed), store.TurnText, ref)
		}
		reply, replyKind, ref, err := o.generateReply(ctx, groundedPrompt(doc, trimmed), store.TurnText, ref)
		if err != nil {
			return "", "", nil, err
		}
		if reply != emptyModelReply {
			reply = groundedHeading(doc.Grade, doc.Lesson, doc.Title) + "\n\n" + reply
		}
		return reply, replyKind, ref, nil
	}
}

func (o *Orchestrator) generateReply(ctx context.Context, prompt string, kind store.TurnKind, ref *store.LessonRef) (string, store.TurnKind, *store.LessonRef, error) {
	text, err := o.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, generate.ErrEmptyReply) {
			return emptyModelReply, kind, ref, nil
		}
		return "", "", nil, err
	}
	return text, kind, ref, nil
}

// trueFalseBatch pages through the lesson's true/false items three at a
// time, advancing the per-(conversation, lesson) cursor and wrapping to the
// start once every item has been shown.
func (o *Orchestrator) trueFalseBatch(ctx context.Context, conversationID uuid.UUID, doc *kb.LessonDoc) (string, error) {
	items, err := o.lookup.TrueFalseItems(ctx, doc.Grade, doc.Lesson)
	if err != nil {
		return "", fmt.Errorf("loading true/false items: %w", err)
	}
	if len(items) == 0 {
		return noTrueFalseReply(doc.Lesson), nil
	}

	cursor := o.state.LoadCursor(conversationID, doc.Grade, doc.Lesson)
	if cursor >= len(items) {
		cursor = 0
	}

	end := min(cursor+trueFalsePageSize, len(items))
	page := items[cursor:end]

	next := end
	if next >= len(items) {
		next = 0
	}
	if err := o.state.SaveCursor(conversationID, doc.Grade, doc.Lesson, next); err != nil {
		o.logger.Warn("saving true/false cursor failed",
			"conversation_id", conversationID, "error", err)
	}

	return trueFalseBatchReply(doc, page, cursor, end, len(items)), nil
}

// refuseDangerous persists the user request and a fixed refusal. The
// conversation, when created here, is titled with the refusal title rather
// than the request text.
func (o *Orchestrator) refuseDangerous(ctx context.Context, conversationID uuid.UUID, trimmed string) (Result, error) {
	res := Result{ConversationID: conversationID}
	if res.ConversationID == uuid.Nil {
		conv, err := o.store.CreateConversation(ctx, newConversation(refusalTitle))
		if err != nil {
			return Result{}, fmt.Errorf("creating conversation: %w", err)
		}
		res.ConversationID = conv.ID
		res.Created = &conv
	}

	user, err := o.cache.Append(ctx, res.ConversationID, store.Message{
		ConversationID: res.ConversationID,
		Role:           store.RoleUser,
		Content:        trimmed,
		Timestamp:      time.Now(),
		Kind:           store.TurnText,
	})
	if err != nil {
		return res, fmt.Errorf("persisting user message: %w", err)
	}
	res.User = user

	assistant, err := o.cache.Append(ctx, res.ConversationID, store.Message{
		ConversationID: res.ConversationID,
		Role:           store.RoleAssistant,
		Content:        refusalReply,
		Timestamp:      time.Now(),
		Kind:           store.TurnText,
	})
	if err != nil {
		o.logger.Error("persisting refusal failed",
			"conversation_id", res.ConversationID, "error", err)
		return res, nil
	}
	res.Assistant = assistant
	return res, nil
}

// newConversation builds the draft record for a lazily created conversation.
func newConversation(title string) store.Conversation {
	now := time.Now()
	return store.Conversation{Title: title, CreatedAt: now, LastMessageAt: now}
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
