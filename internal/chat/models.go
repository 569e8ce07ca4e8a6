// internal/chat/models.go

package chat

import (
	"strings"
	"time"
)

// ConversationKind distinguishes direct and group threads
type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// MessageStatus is the delivery state of a message. It only moves forward
// (sending -> sent -> delivered -> read), except when an optimistic entry
// is swapped for its server-confirmed counterpart.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Participant is a reference entity; it is resolved elsewhere and never
// owned by a conversation.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Username    string `json:"username,omitempty"`
}

// Message is the canonical message shape used everywhere past the
// transport boundary. Before server confirmation ID holds the client
// correlation id and must be treated as impermanent.
type Message struct {
	ID                string        `json:"id"`
	ClientID          string        `json:"client_id,omitempty"`
	Content           string        `json:"content"`
	SenderID          string        `json:"sender_id"`
	SenderDisplayName string        `json:"sender_display_name,omitempty"`
	SentAt            string        `json:"sent_at"`
	Status            MessageStatus `json:"status"`
}

// Conversation holds the loaded window of one thread. Messages reflects
// only the currently loaded pages; Total is the server-reported count
// across all pages.
type Conversation struct {
	ID             string           `json:"id"`
	Name           string           `json:"name,omitempty"`
	Kind           ConversationKind `json:"kind"`
	Participants   []Participant    `json:"participants"`
	Messages       []Message        `json:"messages"`
	UnreadCount    int              `json:"unread_count"`
	LastMessage    *Message         `json:"last_message,omitempty"`
	LastActivityAt string           `json:"last_activity_at,omitempty"`
	Page           int              `json:"page"`
	PageSize       int              `json:"page_size"`
	Total          int              `json:"total"`
}

// activityKey is the sort key for the conversation list. Timestamps are
// emitted in one consistent ISO-8601 format, so lexical comparison is safe.
func (c *Conversation) activityKey() string {
	if c.LastActivityAt != "" {
		return c.LastActivityAt
	}
	if c.LastMessage != nil {
		return c.LastMessage.SentAt
	}
	return ""
}

// OtherParticipant resolves the participant that is not the local user in
// a direct conversation. Resolution fails (ok=false) for group
// conversations, when the local user id is unset, or when filtering does
// not leave exactly one candidate. Callers must treat a failed resolution
// as "unknown" rather than guessing.
func OtherParticipant(c Conversation, localUserID string) (Participant, bool) {
	if c.Kind == KindGroup {
		return Participant{}, false
	}
	local := strings.TrimSpace(localUserID)
	if local == "" {
		return Participant{}, false
	}

	var others []Participant
	for _, p := range c.Participants {
		if strings.TrimSpace(p.ID) != local {
			others = append(others, p)
		}
	}
	if len(others) != 1 {
		return Participant{}, false
	}
	return others[0], true
}

// DisplayLabel returns the label a list view should show for a
// conversation: the explicit name when present, otherwise the other
// participant's display name, otherwise a fixed fallback.
func DisplayLabel(c Conversation, localUserID string) string {
	if c.Name != "" {
		return c.Name
	}
	if other, ok := OtherParticipant(c, localUserID); ok {
		if other.DisplayName != "" {
			return other.DisplayName
		}
		if other.Username != "" {
			return other.Username
		}
	}
	return "Unknown conversation"
}

// timeLayout fixes the wire timestamp format. Millisecond precision with a
// trailing Z keeps lexical order equal to chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

// NowTimestamp returns the current UTC time in the wire format. Used for
// provisional timestamps on optimistic messages.
func NowTimestamp() string {
	return time.Now().UTC().Format(timeLayout)
}
