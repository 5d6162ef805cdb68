// Package session keeps per-conversation FSM state and scratch data in
// memory. Sessions are deliberately volatile: a process restart resets every
// conversation to the idle baseline, which /start recovers from.
package session

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step in a conversation.
type State string

// StateIdle indicates there is no active conversation with the user.
const StateIdle State = "idle"

// Session stores conversation state and temporary data for one chat.
type Session struct {
	State    State
	TempData map[string]interface{}
	LastSeen time.Time
}

// Manager orchestrates sessions and state transitions. Handlers for
// non-idle states are registered on the manager itself; there is no
// package-level handler table.
type Manager interface {
	SetState(chatID int64, st State)
	GetState(chatID int64) State
	HasState(chatID int64) bool
	InProgress(chatID int64) bool
	Clear(chatID int64)

	SetTemp(chatID int64, key string, value interface{})
	GetTemp(chatID int64, key string) (interface{}, bool)
	GetTempString(chatID int64, key string) (string, bool)
	ClearTemp(chatID int64, key string)

	RegisterHandler(st State, h tele.HandlerFunc)
	Dispatch(c tele.Context) error

	EvictIdle(maxIdle time.Duration) int
}
