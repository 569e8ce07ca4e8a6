// internal/chat/store.go
// Single source of truth for all loaded conversations. Every mutation goes
// through the Store so ordering and unread invariants are enforced in one
// place. The Store never talks to the transport: mutations that require a
// follow-up emission return an Effect describing it and the caller acts.

package chat

import (
	"sort"
	"strings"
	"sync"
)

// Observer is notified after any store mutation that changed visible
// state. Notifications run outside the store lock.
type Observer interface {
	ConversationsChanged()
}

// Effect describes a side effect the caller must perform after a
// mutation.
type Effect struct {
	// SendReadReceipt is set when an incoming message was auto-marked
	// read because its conversation is the open one; the caller should
	// emit a mark_as_read for ConversationID.
	SendReadReceipt bool
	ConversationID  string
}

// Store holds one session's conversations. One logical session means one
// transport connection and one local user identity; the Store is not
// designed for writers holding different identities.
type Store struct {
	mu sync.RWMutex

	order []*Conversation
	byID  map[string]*Conversation

	typingUsers   []string
	currentUserID string
	activeConvID  string

	observers []Observer
}

func NewStore() *Store {
	return &Store{
		byID: make(map[string]*Conversation),
	}
}

// Subscribe registers an observer. Returns an unsubscribe func.
func (s *Store) Subscribe(o Observer) func() {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.observers {
			if existing == o {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, o := range observers {
		o.ConversationsChanged()
	}
}

// SetCurrentUser sets the local user identity. Must be called before any
// unread or optimistic logic is meaningful since sender comparisons
// depend on it.
func (s *Store) SetCurrentUser(id string) {
	s.mu.Lock()
	s.currentUserID = strings.TrimSpace(id)
	s.mu.Unlock()
}

func (s *Store) CurrentUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUserID
}

// SetActiveConversation marks the conversation currently displayed by the
// view. Incoming messages for the active conversation are auto-read.
func (s *Store) SetActiveConversation(id string) {
	s.mu.Lock()
	s.activeConvID = id
	s.mu.Unlock()
}

func (s *Store) ActiveConversation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeConvID
}

func (s *Store) SetTypingUsers(users []string) {
	s.mu.Lock()
	s.typingUsers = append([]string(nil), users...)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) TypingUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.typingUsers...)
}

// ReplaceConversations merges a server conversation list snapshot. For ids
// already present with a non-empty loaded message window, that window and
// its pagination cursor are preserved (the summary carries no history).
// After the merge the conversation set matches the incoming id set
// exactly.
func (s *Store) ReplaceConversations(list []Conversation) {
	s.mu.Lock()

	next := make([]*Conversation, 0, len(list))
	nextByID := make(map[string]*Conversation, len(list))

	for _, incoming := range list {
		if incoming.ID == "" {
			continue
		}
		if _, dup := nextByID[incoming.ID]; dup {
			continue
		}
		conv := incoming
		if conv.Messages == nil {
			conv.Messages = []Message{}
		}
		if conv.Page == 0 {
			conv.Page = 1
		}
		if existing, ok := s.byID[conv.ID]; ok && len(existing.Messages) > 0 {
			conv.Messages = existing.Messages
			conv.Page = existing.Page
			conv.PageSize = existing.PageSize
			conv.Total = existing.Total
		}
		next = append(next, &conv)
		nextByID[conv.ID] = &conv
	}

	s.order = next
	s.byID = nextByID
	s.sortLocked()
	s.mu.Unlock()
	s.notify()
}

// ReplaceMessagePage installs a page of history. Page 1 replaces the
// loaded window entirely; later pages are strictly older and are
// prepended, which models backward pagination. Pages are not deduplicated:
// callers must request non-overlapping pages.
func (s *Store) ReplaceMessagePage(conversationID string, messages []Message, page, pageSize, total int) {
	s.mu.Lock()
	conv := s.ensureLocked(conversationID)

	if page <= 1 {
		conv.Messages = append([]Message(nil), messages...)
	} else {
		window := make([]Message, 0, len(messages)+len(conv.Messages))
		window = append(window, messages...)
		window = append(window, conv.Messages...)
		conv.Messages = window
	}
	conv.Page = page
	if pageSize > 0 {
		conv.PageSize = pageSize
	}
	conv.Total = total
	s.mu.Unlock()
	s.notify()
}

// AppendOptimistic installs a locally originated placeholder entry. It
// always appends: every outbound send gets its own pending row, so rapid
// identical sends never collapse into one another's placeholder.
func (s *Store) AppendOptimistic(conversationID string, msg Message) {
	s.mu.Lock()
	conv := s.ensureLocked(conversationID)
	conv.Messages = append(conv.Messages, msg)

	stored := msg
	conv.LastMessage = &stored
	if msg.SentAt != "" {
		conv.LastActivityAt = msg.SentAt
	}
	s.sortLocked()
	s.mu.Unlock()
	s.notify()
}

// AppendIncomingMessage applies one message from the real-time stream.
// A client-correlated or content-matched optimistic entry is replaced in
// place, so the local placeholder and the server echo collapse into one
// entry. Unread accounting only applies to messages from other users.
func (s *Store) AppendIncomingMessage(conversationID string, msg Message, conversationOpen bool) Effect {
	var effect Effect

	s.mu.Lock()
	conv := s.ensureLocked(conversationID)

	fromSelf := s.currentUserID != "" && msg.SenderID == s.currentUserID
	if !fromSelf && conversationOpen {
		msg.Status = StatusRead
	}

	idx, method := s.findOptimisticLocked(conv, msg)
	if idx >= 0 {
		conv.Messages[idx] = msg
	} else {
		conv.Messages = append(conv.Messages, msg)
	}
	reconciliationsTotal.WithLabelValues(method).Inc()

	stored := msg
	conv.LastMessage = &stored
	if msg.SentAt != "" {
		conv.LastActivityAt = msg.SentAt
	}

	if !fromSelf {
		if conversationOpen {
			effect = Effect{SendReadReceipt: true, ConversationID: conv.ID}
		} else {
			conv.UnreadCount++
		}
	}

	s.sortLocked()
	s.mu.Unlock()
	s.notify()
	return effect
}

// findOptimisticLocked locates the optimistic entry an incoming message
// confirms. The correlation id is authoritative; the content+sender scan
// is kept as a fallback for echoes that do not carry one.
func (s *Store) findOptimisticLocked(conv *Conversation, msg Message) (int, string) {
	if msg.ClientID != "" {
		for i := range conv.Messages {
			m := &conv.Messages[i]
			if m.Status == StatusSending && m.ClientID == msg.ClientID {
				return i, reconcileByClientID
			}
		}
	}
	for i := range conv.Messages {
		m := &conv.Messages[i]
		if m.Status != StatusSending || m.Content != msg.Content || m.SenderID != msg.SenderID {
			continue
		}
		// a correlated placeholder only matches by its own id; the scan
		// must not consume a different send's pending entry
		if m.ClientID != "" && msg.ClientID != "" && m.ClientID != msg.ClientID {
			continue
		}
		return i, reconcileByScan
	}
	return -1, reconcileAppended
}

// MarkRead zeroes the unread counter and flips every message not authored
// by the local user to read. Idempotent.
func (s *Store) MarkRead(conversationID string) {
	s.mu.Lock()
	conv := s.ensureLocked(conversationID)
	conv.UnreadCount = 0
	for i := range conv.Messages {
		if conv.Messages[i].SenderID != s.currentUserID {
			conv.Messages[i].Status = StatusRead
		}
	}
	if conv.LastMessage != nil && conv.LastMessage.SenderID != s.currentUserID {
		conv.LastMessage.Status = StatusRead
	}
	s.mu.Unlock()
	s.notify()
}

// UpdateMessageStatus overwrites one message's status. A missing
// conversation or message is a no-op; status events may race ahead of the
// history they describe.
func (s *Store) UpdateMessageStatus(conversationID, messageID string, status MessageStatus) {
	s.mu.Lock()
	conv := s.ensureLocked(conversationID)
	changed := false
	for i := range conv.Messages {
		if conv.Messages[i].ID == messageID {
			conv.Messages[i].Status = status
			changed = true
			break
		}
	}
	if conv.LastMessage != nil && conv.LastMessage.ID == messageID {
		conv.LastMessage.Status = status
		changed = true
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Conversations returns a snapshot of the conversation list in activity
// order. The returned slice and its message windows are copies; consumers
// never alias store internals.
func (s *Store) Conversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Conversation, 0, len(s.order))
	for _, conv := range s.order {
		out = append(out, snapshotConversation(conv))
	}
	return out
}

// Conversation returns a snapshot of one conversation.
func (s *Store) Conversation(id string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.byID[id]
	if !ok {
		return Conversation{}, false
	}
	return snapshotConversation(conv), true
}

// UnreadTotal sums unread counters across all conversations.
func (s *Store) UnreadTotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, conv := range s.order {
		total += conv.UnreadCount
	}
	return total
}

// ensureLocked returns the conversation for id, synthesizing a minimal
// placeholder when events race ahead of the conversation list fetch.
func (s *Store) ensureLocked(id string) *Conversation {
	if conv, ok := s.byID[id]; ok {
		return conv
	}
	conv := &Conversation{
		ID:       id,
		Kind:     KindDirect,
		Messages: []Message{},
		Page:     1,
	}
	s.order = append(s.order, conv)
	s.byID[id] = conv
	return conv
}

// sortLocked orders the list by last activity descending. Stable, so ties
// keep their prior relative order.
func (s *Store) sortLocked() {
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.order[i].activityKey() > s.order[j].activityKey()
	})
}

func snapshotConversation(conv *Conversation) Conversation {
	out := *conv
	out.Messages = append([]Message(nil), conv.Messages...)
	out.Participants = append([]Participant(nil), conv.Participants...)
	if conv.LastMessage != nil {
		last := *conv.LastMessage
		out.LastMessage = &last
	}
	return out
}
