// internal/chat/normalize.go
// Maps the range of server payload shapes into the canonical types.
// Fields in transport payloads are not shape-stable: identifiers arrive as
// strings or numbers, senders as objects or bare ids. All of that leniency
// lives here so nothing past this file ever branches on shape.

package chat

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexID decodes a JSON string or number into a normalized string id.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(v))
		return nil
	}
	// bare number
	*f = FlexID(s)
	return nil
}

func (f FlexID) String() string { return string(f) }

// NormalizeID stringifies and trims an identifier of any runtime type.
// Mirrors what FlexID does at the JSON boundary for values that are
// already decoded (JSON numbers surface as float64).
func NormalizeID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case FlexID:
		return id.String()
	default:
		return ""
	}
}

// flexSender accepts a sender field that is either a participant object or
// a bare id.
type flexSender struct {
	ID          FlexID
	DisplayName string
	Username    string
}

func (s *flexSender) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		return nil
	}
	if trimmed[0] == '{' {
		var obj struct {
			ID          FlexID `json:"id"`
			UserID      FlexID `json:"user_id"`
			DisplayName string `json:"display_name"`
			Username    string `json:"username"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		s.ID = obj.ID
		if s.ID == "" {
			s.ID = obj.UserID
		}
		s.DisplayName = obj.DisplayName
		s.Username = obj.Username
		return nil
	}
	var id FlexID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	s.ID = id
	return nil
}

// RawMessage mirrors a server-shaped message payload.
type RawMessage struct {
	ID             FlexID     `json:"id"`
	ClientID       string     `json:"client_id"`
	ConversationID FlexID     `json:"conversation_id"`
	Sender         flexSender `json:"sender"`
	SenderID       FlexID     `json:"sender_id"`
	Content        string     `json:"content"`
	SentAt         string     `json:"sent_at"`
	Status         string     `json:"status"`
}

// NormalizeMessage converts a server-shaped message into the canonical
// Message. Missing status defaults to sent; a missing sender object falls
// back to the bare sender_id field.
func NormalizeMessage(raw RawMessage) Message {
	senderID := raw.Sender.ID.String()
	if senderID == "" {
		senderID = raw.SenderID.String()
	}

	status := MessageStatus(raw.Status)
	switch status {
	case StatusSending, StatusSent, StatusDelivered, StatusRead:
	default:
		status = StatusSent
	}

	return Message{
		ID:                raw.ID.String(),
		ClientID:          raw.ClientID,
		Content:           raw.Content,
		SenderID:          senderID,
		SenderDisplayName: raw.Sender.DisplayName,
		SentAt:            raw.SentAt,
		Status:            status,
	}
}

// rawParticipant accepts participant entries that are objects or bare ids.
type rawParticipant struct {
	flexSender
}

// RawConversation mirrors a server conversation summary as carried by the
// conversations_list payload and the REST seed response.
type RawConversation struct {
	ID             FlexID           `json:"id"`
	Name           string           `json:"name"`
	Kind           string           `json:"kind"`
	Type           string           `json:"type"`
	Participants   []rawParticipant `json:"participants"`
	LastMessage    *RawMessage      `json:"last_message"`
	UnreadCount    int              `json:"unread_count"`
	LastActivityAt string           `json:"last_activity_at"`
	LastMessageAt  string           `json:"last_message_at"`
}

// NormalizeConversation converts a server conversation summary into a
// canonical Conversation with an empty message window.
func NormalizeConversation(raw RawConversation) Conversation {
	kind := raw.Kind
	if kind == "" {
		kind = raw.Type
	}
	ck := ConversationKind(kind)
	if ck != KindGroup {
		ck = KindDirect
	}

	participants := make([]Participant, 0, len(raw.Participants))
	seen := make(map[string]bool, len(raw.Participants))
	for _, rp := range raw.Participants {
		id := rp.ID.String()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, Participant{
			ID:          id,
			DisplayName: rp.DisplayName,
			Username:    rp.Username,
		})
	}

	conv := Conversation{
		ID:           raw.ID.String(),
		Name:         raw.Name,
		Kind:         ck,
		Participants: participants,
		Messages:     []Message{},
		UnreadCount:  raw.UnreadCount,
		Page:         1,
	}
	if raw.LastMessage != nil {
		last := NormalizeMessage(*raw.LastMessage)
		conv.LastMessage = &last
	}
	conv.LastActivityAt = raw.LastActivityAt
	if conv.LastActivityAt == "" {
		conv.LastActivityAt = raw.LastMessageAt
	}
	return conv
}

// ConversationListPayload is the shape shared by the conversations_list
// event and the REST seed response.
type ConversationListPayload struct {
	Conversations []RawConversation `json:"conversations"`
}

// DecodeConversationList decodes and normalizes a conversation list
// payload.
func DecodeConversationList(data []byte) ([]Conversation, error) {
	var payload ConversationListPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	out := make([]Conversation, 0, len(payload.Conversations))
	for _, raw := range payload.Conversations {
		out = append(out, NormalizeConversation(raw))
	}
	return out, nil
}
