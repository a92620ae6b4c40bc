// Package state provides a lightweight session store for conversational
// Telegram bots. It is domain-agnostic: flows keep their typed form data
// in Session.Form.
package state

// Step identifies a finite-state-machine step inside a conversation.
type Step string

// Session is the ephemeral per-user conversation state: the active flow,
// the current step, the steps already visited (for back navigation), and
// the flow's accumulated form data.
//
// Sessions live in process memory only. A restart drops them; users simply
// restart the flow.
type Session struct {
	Flow    string
	Step    Step
	History []Step
	Form    any
}

// Push advances to the next step, remembering the current one.
func (s *Session) Push(next Step) {
	s.History = append(s.History, s.Step)
	s.Step = next
}

// Pop steps back to the previously visited step. It reports false when
// there is nothing to go back to.
func (s *Session) Pop() bool {
	if len(s.History) == 0 {
		return false
	}
	s.Step = s.History[len(s.History)-1]
	s.History = s.History[:len(s.History)-1]
	return true
}

// Manager stores at most one session per user. Implementations must be
// safe for concurrent use: handlers for different users interleave.
type Manager interface {
	Get(userID int64) (*Session, bool)
	Put(userID int64, s *Session)
	Clear(userID int64)
	InProgress(userID int64) bool
	// ClearAll drops every session; used on version bumps.
	ClearAll()
}
