package session

import (
	"sync"
	"time"

	"github.com/episthema/vpnbot/internal/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	handlers map[State]tele.HandlerFunc
	now      func() time.Time
}

// NewMemoryManager constructs the in-memory Manager implementation.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[int64]*Session),
		handlers: make(map[State]tele.HandlerFunc),
		now:      time.Now,
	}
}

func (m *memoryManager) session(chatID int64) *Session {
	sess, ok := m.sessions[chatID]
	if !ok {
		sess = &Session{State: StateIdle, TempData: make(map[string]interface{})}
		m.sessions[chatID] = sess
	}
	sess.LastSeen = m.now()
	return sess
}

// SetState sets the FSM state for the given chat, creating the session if needed.
func (m *memoryManager) SetState(chatID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(chatID).State = st
}

// GetState returns the current FSM state of a chat, or StateIdle if none exists.
func (m *memoryManager) GetState(chatID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[chatID]; ok {
		return sess.State
	}
	return StateIdle
}

// HasState checks if a chat has an active state other than idle.
func (m *memoryManager) HasState(chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[chatID]
	return ok && sess.State != StateIdle
}

// InProgress reports whether the chat currently has an active FSM state.
func (m *memoryManager) InProgress(chatID int64) bool {
	return m.HasState(chatID)
}

// Clear removes the entire session for a chat, dropping all scratch data.
func (m *memoryManager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// SetTemp stores a temporary key/value pair for the given chat session.
func (m *memoryManager) SetTemp(chatID int64, key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(chatID).TempData[key] = value
}

// GetTemp retrieves a temporary value by key for the given chat session.
func (m *memoryManager) GetTemp(chatID int64, key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[chatID]
	if !ok {
		return nil, false
	}
	val, ok := sess.TempData[key]
	return val, ok
}

// GetTempString retrieves a temporary value by key and asserts it as string.
func (m *memoryManager) GetTempString(chatID int64, key string) (string, bool) {
	val, found := m.GetTemp(chatID, key)
	if !found {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// ClearTemp removes a temporary key/value pair for the given chat session.
func (m *memoryManager) ClearTemp(chatID int64, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[chatID]; ok {
		delete(sess.TempData, key)
	}
}

// RegisterHandler associates a state with its handler.
func (m *memoryManager) RegisterHandler(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[st] = h
}

// Dispatch executes the handler registered for the chat's current state, if any.
func (m *memoryManager) Dispatch(c tele.Context) error {
	chatID := c.Sender().ID
	current := m.GetState(chatID)

	logger.SESS.LogAttrs(logger.Background(), slog.LevelDebug, "dispatch",
		slog.String("event", "session.dispatch"),
		slog.Int64("chat_id", chatID),
		slog.String("state", string(current)),
	)

	m.mu.RLock()
	handler, ok := m.handlers[current]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return handler(c)
}

// EvictIdle drops sessions untouched for longer than maxIdle and returns the
// number removed. Called periodically by the janitor.
func (m *memoryManager) EvictIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for chatID, sess := range m.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(m.sessions, chatID)
			evicted++
		}
	}
	return evicted
}
