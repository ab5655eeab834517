package domain

import "time"

// Turn is a single question/answer exchange.
type Turn struct {
	Question string
	Answer   string
	At       time.Time
}

// History is the ordered sequence of turns for one scope.
type History []Turn

// Append returns a new history with the turn added.
// The receiver is never modified, so callers holding the old value keep it intact.
func (h History) Append(t Turn) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, t)
}

// Messages flattens the history into alternating user/assistant messages.
func (h History) Messages() []Message {
	msgs := make([]Message, 0, len(h)*2)
	for _, t := range h {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: t.Question},
			Message{Role: RoleAssistant, Content: t.Answer},
		)
	}
	return msgs
}

// Role tags the author of a persisted message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single persisted chat message.
// Role may be empty for records written without tags. TurnID links the
// question and answer of one turn; it is zero for rows saved one at a time.
type Message struct {
	Role    Role
	Content string
	At      time.Time
	TurnID  int64
}

// PairMessages reconstructs turns from persisted messages.
//
// Messages with a TurnID are grouped by it, in order of first appearance,
// so saves that interleave still pair each question with its own answer.
// Messages without one pair by position: explicit role tags are preferred,
// and an untagged message takes its role from its index (even = user,
// odd = assistant). A question followed by another question is dropped, as
// is an answer with no preceding question, so every returned turn is
// complete.
func PairMessages(msgs []Message) History {
	type slot struct {
		turn     Turn
		asked    bool
		answered bool
	}
	var (
		slots   []*slot
		byTurn  = make(map[int64]*slot)
		pending *Message
	)
	for i := range msgs {
		m := msgs[i]
		if m.TurnID != 0 {
			sl, ok := byTurn[m.TurnID]
			if !ok {
				sl = &slot{}
				byTurn[m.TurnID] = sl
				slots = append(slots, sl)
			}
			switch m.Role {
			case RoleUser:
				sl.turn.Question = m.Content
				sl.asked = true
			case RoleAssistant:
				sl.turn.Answer = m.Content
				sl.turn.At = m.At
				sl.answered = true
			}
			continue
		}

		role := m.Role
		if role == "" {
			if i%2 == 0 {
				role = RoleUser
			} else {
				role = RoleAssistant
			}
		}

		switch role {
		case RoleUser:
			pending = &msgs[i]
		case RoleAssistant:
			if pending == nil {
				continue
			}
			slots = append(slots, &slot{
				turn:     Turn{Question: pending.Content, Answer: m.Content, At: m.At},
				asked:    true,
				answered: true,
			})
			pending = nil
		}
	}

	var history History
	for _, sl := range slots {
		if sl.asked && sl.answered {
			history = append(history, sl.turn)
		}
	}
	return history
}
