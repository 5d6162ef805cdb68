package session

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

const (
	stateOne State = "one"
	stateTwo State = "two"
)

// dispatchContext implements just enough of tele.Context for Dispatch.
type dispatchContext struct {
	tele.Context
	sender *tele.User
}

func (c dispatchContext) Sender() *tele.User { return c.sender }

func TestStateLifecycle(t *testing.T) {
	m := NewMemoryManager()

	if got := m.GetState(1); got != StateIdle {
		t.Fatalf("fresh chat state = %q, want idle", got)
	}
	if m.InProgress(1) {
		t.Fatal("fresh chat should not be in progress")
	}

	m.SetState(1, stateOne)
	if got := m.GetState(1); got != stateOne {
		t.Fatalf("state = %q, want %q", got, stateOne)
	}
	if !m.InProgress(1) {
		t.Fatal("chat with state should be in progress")
	}

	// Other chats are unaffected.
	if m.InProgress(2) {
		t.Fatal("unrelated chat should be idle")
	}

	m.Clear(1)
	if got := m.GetState(1); got != StateIdle {
		t.Fatalf("cleared chat state = %q, want idle", got)
	}
}

func TestTempDataScopedToChat(t *testing.T) {
	m := NewMemoryManager()

	m.SetTemp(1, "broadcast_text", "hello")
	m.SetTemp(1, "broadcast_url", "https://example.com")

	if s, ok := m.GetTempString(1, "broadcast_text"); !ok || s != "hello" {
		t.Fatalf("GetTempString = %q, %v", s, ok)
	}
	if _, ok := m.GetTemp(2, "broadcast_text"); ok {
		t.Fatal("scratch data leaked to another chat")
	}

	m.ClearTemp(1, "broadcast_text")
	if _, ok := m.GetTemp(1, "broadcast_text"); ok {
		t.Fatal("ClearTemp did not remove the key")
	}

	m.Clear(1)
	if _, ok := m.GetTemp(1, "broadcast_url"); ok {
		t.Fatal("Clear did not drop scratch data")
	}
}

func TestGetTempStringTypeMismatch(t *testing.T) {
	m := NewMemoryManager()
	m.SetTemp(1, "key", 7)
	if _, ok := m.GetTempString(1, "key"); ok {
		t.Fatal("expected type mismatch to report not-ok")
	}
}

func TestDispatchRoutesByState(t *testing.T) {
	m := NewMemoryManager()

	var hit State
	m.RegisterHandler(stateOne, func(tele.Context) error { hit = stateOne; return nil })
	m.RegisterHandler(stateTwo, func(tele.Context) error { hit = stateTwo; return nil })

	c := dispatchContext{sender: &tele.User{ID: 9}}

	m.SetState(9, stateTwo)
	if err := m.Dispatch(c); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if hit != stateTwo {
		t.Fatalf("dispatched %q, want %q", hit, stateTwo)
	}

	// Idle chats dispatch to nothing.
	hit = ""
	m.Clear(9)
	if err := m.Dispatch(c); err != nil {
		t.Fatalf("dispatch idle: %v", err)
	}
	if hit != "" {
		t.Fatalf("idle dispatch ran handler %q", hit)
	}
}

func TestEvictIdle(t *testing.T) {
	current := time.Now()
	m := &memoryManager{
		sessions: make(map[int64]*Session),
		handlers: make(map[State]tele.HandlerFunc),
		now:      func() time.Time { return current },
	}

	m.SetState(1, stateOne)
	m.SetState(2, stateOne)

	// Chat 2 stays active; chat 1 goes idle for two hours.
	current = current.Add(2 * time.Hour)
	m.SetTemp(2, "k", "v")

	evicted := m.EvictIdle(time.Hour)
	if evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if m.InProgress(1) {
		t.Fatal("idle session survived eviction")
	}
	if !m.InProgress(2) {
		t.Fatal("active session was evicted")
	}
}
