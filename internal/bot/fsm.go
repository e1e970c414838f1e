package bot

import "sync"

// State identifies where a chat is inside a multi-step conversation.
type State int

const (
	StateIdle State = iota

	StateAddDepartmentName

	StateAddProjectDepartment
	StateAddProjectName

	StateAddExpenseProject
	StateAddExpenseDescription
	StateAddExpenseAmount
)

// Session is one chat's conversation progress. Data accumulates the answers
// collected so far, keyed by field name.
type Session struct {
	ChatID int64
	State  State
	Data   map[string]string
}

// Sessions tracks per-chat conversation state. Safe for concurrent updates
// from the poller goroutine and command handlers.
type Sessions struct {
	mu     sync.Mutex
	byChat map[int64]*Session
}

func NewSessions() *Sessions {
	return &Sessions{byChat: make(map[int64]*Session)}
}

// Get returns the chat's session, creating an idle one if absent.
func (s *Sessions) Get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byChat[chatID]
	if !ok {
		sess = &Session{ChatID: chatID, State: StateIdle, Data: make(map[string]string)}
		s.byChat[chatID] = sess
	}
	return sess
}

// Begin resets the chat to the first step of a new conversation, discarding
// anything collected before.
func (s *Sessions) Begin(chatID int64, state State) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{ChatID: chatID, State: state, Data: make(map[string]string)}
	s.byChat[chatID] = sess
	return sess
}

// Advance stores one collected answer and moves to the next step.
func (s *Sessions) Advance(chatID int64, key, value string, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byChat[chatID]
	if !ok {
		return
	}
	sess.Data[key] = value
	sess.State = next
}

// Reset returns the chat to idle, clearing collected answers.
func (s *Sessions) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byChat, chatID)
}
