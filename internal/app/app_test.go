package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/kristentruong11/sun11this/internal/kb"
	"github.com/kristentruong11/sun11this/internal/state"
	"github.com/kristentruong11/sun11this/internal/store"
	"github.com/kristentruong11/sun11this/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestApp(t *testing.T) (*App, *testutil.MemStore) {
	t.Helper()

	ms := testutil.NewMemStore()
	logger := slog.New(slog.DiscardHandler)
	st, err := state.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("state.New() error = %v", err)
	}

	lookup := kb.NewIndex([]kb.LessonDoc{
		{Grade: 10, Lesson: 1, Title: "Hiện thực lịch sử", Content: "Nội dung bài 1.", Category: kb.CategoryTheory},
	})

	a, err := New(Config{
		Store:        ms,
		Lookup:       lookup,
		Generator:    testutil.NewMockGenerator("Câu trả lời thử nghiệm."),
		State:        st,
		Logger:       logger,
		RefetchDelay: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a, ms
}

func TestSendMessageCreatesAndSelectsConversation(t *testing.T) {
	a, _ := newTestApp(t)

	if a.Current() != uuid.Nil {
		t.Fatal("fresh app has a current conversation")
	}

	res, err := a.SendMessage(context.Background(), "Bài 1 Lớp 10")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if res.Created == nil {
		t.Fatal("conversation was not created")
	}
	if a.Current() != res.ConversationID {
		t.Errorf("Current() = %v, want %v", a.Current(), res.ConversationID)
	}

	msgs := a.MergedMessages(res.ConversationID)
	if len(msgs) != 2 {
		t.Fatalf("MergedMessages() len = %d, want 2", len(msgs))
	}
	if msgs[0].Role != store.RoleUser || msgs[1].Role != store.RoleAssistant {
		t.Errorf("merged order = [%s %s]", msgs[0].Role, msgs[1].Role)
	}
}

func TestSendMessageContinuesCurrentConversation(t *testing.T) {
	a, _ := newTestApp(t)

	first, err := a.SendMessage(context.Background(), "Bài 1 Lớp 10")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	second, err := a.SendMessage(context.Background(), "nội dung chính là gì")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if second.Created != nil {
		t.Error("second message created a new conversation")
	}
	if second.ConversationID != first.ConversationID {
		t.Errorf("conversation changed between turns: %v vs %v", first.ConversationID, second.ConversationID)
	}
	if got := len(a.MergedMessages(first.ConversationID)); got != 4 {
		t.Errorf("merged view has %d messages, want 4", got)
	}
}

func TestNewConversationStartsFresh(t *testing.T) {
	a, _ := newTestApp(t)

	first, err := a.SendMessage(context.Background(), "Bài 1 Lớp 10")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	a.NewConversation()
	if a.Current() != uuid.Nil {
		t.Fatal("NewConversation() did not clear the selection")
	}

	second, err := a.SendMessage(context.Background(), "Bài 1 Lớp 10")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if second.ConversationID == first.ConversationID {
		t.Error("new conversation reused the previous id")
	}
}

func TestSelectConversationReconcilesFetch(t *testing.T) {
	a, ms := newTestApp(t)

	res, err := a.SendMessage(context.Background(), "Bài 1 Lớp 10")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	convID := res.ConversationID

	// Another client added a message the cache has not seen.
	ms.Seed(convID, store.Message{
		Role: store.RoleUser, Content: "từ thiết bị khác",
		Timestamp: time.Now().Add(time.Second), Kind: store.TurnText,
	})

	a.NewConversation()
	msgs, err := a.SelectConversation(context.Background(), convID)
	if err != nil {
		t.Fatalf("SelectConversation() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("merged view has %d messages, want 3", len(msgs))
	}
	if a.Current() != convID {
		t.Errorf("Current() = %v, want %v", a.Current(), convID)
	}
}

func TestRefreshKeepsLocalViewDuringLag(t *testing.T) {
	a, ms := newTestApp(t)

	res, err := a.SendMessage(context.Background(), "Bài 1 Lớp 10")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	convID := res.ConversationID

	// The replica hides the newest message.
	ms.SetHoldBack(1)
	msgs, err := a.RefreshMessages(context.Background(), convID)
	if err != nil {
		t.Fatalf("RefreshMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("lagging refresh dropped messages: %d, want 2", len(msgs))
	}
	if !a.IsSyncing(convID) {
		t.Error("IsSyncing() = false during lag, want true")
	}

	// Once the replica catches up, the delayed refetch clears the flag.
	ms.SetHoldBack(0)
	deadline := time.After(time.Second)
	for a.IsSyncing(convID) {
		select {
		case <-deadline:
			t.Fatal("syncing flag never cleared")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDeleteConversationForgetsEverything(t *testing.T) {
	a, _ := newTestApp(t)

	res, err := a.SendMessage(context.Background(), "Bài 1 Lớp 10")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	convID := res.ConversationID

	if err := a.DeleteConversation(context.Background(), convID); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if a.Current() != uuid.Nil {
		t.Error("deleted conversation is still current")
	}
	if got := a.MergedMessages(convID); got != nil {
		t.Errorf("MergedMessages() after delete = %v, want nil", got)
	}

	convs, err := a.Conversations(context.Background())
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("Conversations() after delete = %d entries, want 0", len(convs))
	}
}

func TestConversationsNewestFirst(t *testing.T) {
	a, _ := newTestApp(t)

	if _, err := a.SendMessage(context.Background(), "Bài 1 Lớp 10"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	a.NewConversation()
	second, err := a.SendMessage(context.Background(), "chuyện thứ hai")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	convs, err := a.Conversations(context.Background())
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("Conversations() len = %d, want 2", len(convs))
	}
	if convs[0].ID != second.ConversationID {
		t.Errorf("newest conversation not first: %q", convs[0].Title)
	}
}

func TestConcurrentSendsSerializePerConversation(t *testing.T) {
	a, ms := newTestApp(t)

	if _, err := a.SendMessage(context.Background(), "Bài 1 Lớp 10"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	convID := a.Current()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.SendMessage(context.Background(), "câu hỏi tiếp theo"); err != nil {
				t.Errorf("SendMessage() error = %v", err)
			}
		}()
	}
	wg.Wait()

	// 5 turns, two messages each, all in one conversation.
	if got := ms.CreateCalls; got != 10 {
		t.Errorf("CreateCalls = %d, want 10", got)
	}
	if got := len(a.MergedMessages(convID)); got != 10 {
		t.Errorf("merged view has %d messages, want 10", got)
	}
}

func TestConcurrentFirstSendsShareOneConversation(t *testing.T) {
	a, _ := newTestApp(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.SendMessage(context.Background(), "câu hỏi mở đầu"); err != nil {
				t.Errorf("SendMessage() error = %v", err)
			}
		}()
	}
	wg.Wait()

	convs, err := a.Conversations(context.Background())
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("Conversations() len = %d, want 1 (racing first sends forked the conversation)", len(convs))
	}
	if got := len(a.MergedMessages(convs[0].ID)); got != 8 {
		t.Errorf("merged view has %d messages, want 8", got)
	}
}

func TestSendMessageTitleFromContent(t *testing.T) {
	a, _ := newTestApp(t)

	long := strings.Repeat("lịch sử Việt Nam ", 10)
	res, err := a.SendMessage(context.Background(), long)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if got := len([]rune(res.Created.Title)); got != 50 {
		t.Errorf("title length = %d runes, want 50", got)
	}
}
