// internal/chat/router.go
// Translates transport events into Store/Presence operations and local
// user actions into outbound events. The inbound side is a fixed dispatch
// table; handlers only reshape payloads, all state logic lives in the
// Store.

package chat

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidConversationID = errors.New("chat: invalid conversation id")
	ErrInvalidMessage        = errors.New("chat: message must be 1-500 characters after sanitization")
)

// Inbound event names. These are part of the compatibility surface with
// the server.
const (
	evNewMessage          = "new_message"
	evMessageHistory      = "message_history"
	evUserTyping          = "user_typing"
	evConversationsList   = "conversations_list"
	evJoinedConversation  = "joined_conversation"
	evUserJoined          = "user_joined"
	evUserLeft            = "user_left"
	evUserOnline          = "user_online"
	evUserOffline         = "user_offline"
	evOnlineUsers         = "online_users"
	evMessagesMarkedRead  = "messages_marked_read"
	evMessageStatusUpdate = "message_status_update"
)

// Outbound event names.
const (
	evJoinConversation = "join_conversation"
	evSendMessage      = "send_message"
	evTyping           = "typing"
	evGetMessages      = "get_messages"
	evGetConversations = "get_conversations"
	evGetOnlineUsers   = "get_online_users"
	evMarkAsRead       = "mark_as_read"
)

// DefaultPageSize is the history page size requested when none is
// configured.
const DefaultPageSize = 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// conversation ids share the transport id rule
	v.RegisterValidation("chat_id", func(fl validator.FieldLevel) bool {
		return IsValidID(fl.Field().String())
	})
	return v
}

type sendMessagePayload struct {
	ConversationID string `json:"conversation_id" validate:"required,chat_id"`
	Content        string `json:"content" validate:"required,max=500"`
	ClientID       string `json:"client_id,omitempty"`
}

// Router wires one Store and one Presence tracker to one Transport.
type Router struct {
	store    *Store
	presence *Presence
	tr       Transport
	log      *zap.SugaredLogger
	pageSize int

	table map[string]func(json.RawMessage)
}

func NewRouter(store *Store, presence *Presence, tr Transport, log *zap.SugaredLogger, pageSize int) *Router {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	r := &Router{
		store:    store,
		presence: presence,
		tr:       tr,
		log:      log,
		pageSize: pageSize,
	}
	r.table = map[string]func(json.RawMessage){
		evNewMessage:          r.onNewMessage,
		evMessageHistory:      r.onMessageHistory,
		evUserTyping:          r.onUserTyping,
		evConversationsList:   r.onConversationsList,
		evJoinedConversation:  r.onJoinedConversation,
		evUserJoined:          r.onUserJoined,
		evUserLeft:            r.onUserLeft,
		evUserOnline:          r.onUserOnline,
		evUserOffline:         r.onUserOffline,
		evOnlineUsers:         r.onOnlineUsers,
		evMessagesMarkedRead:  r.onMessagesMarkedRead,
		evMessageStatusUpdate: r.onMessageStatusUpdate,
		EventConnect:          r.onConnect,
	}
	return r
}

// HandleEvent dispatches one inbound transport event. Unknown events and
// malformed payloads are absorbed: a real-time stream must never crash
// the view.
func (r *Router) HandleEvent(event string, data json.RawMessage) {
	eventsReceivedTotal.WithLabelValues(event).Inc()

	handler, ok := r.table[event]
	if !ok {
		r.log.Debugw("ignoring unknown event", "event", event)
		return
	}
	handler(data)
}

func (r *Router) emit(event string, data any) {
	if err := r.tr.Emit(event, data); err != nil {
		r.log.Warnw("emit failed", "event", event, "error", err)
		return
	}
	eventsSentTotal.WithLabelValues(event).Inc()
}

// --- inbound handlers ---

func (r *Router) onNewMessage(data json.RawMessage) {
	var raw RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		r.log.Warnw("bad new_message payload", "error", err)
		return
	}
	convID := raw.ConversationID.String()
	if convID == "" {
		return
	}
	msg := NormalizeMessage(raw)
	open := r.store.ActiveConversation() == convID

	effect := r.store.AppendIncomingMessage(convID, msg, open)
	if effect.SendReadReceipt {
		r.emit(evMarkAsRead, map[string]string{"conversationId": effect.ConversationID})
	}
}

func (r *Router) onMessageHistory(data json.RawMessage) {
	var payload struct {
		Messages       []RawMessage `json:"messages"`
		Page           int          `json:"page"`
		Limit          int          `json:"limit"`
		Total          int          `json:"total"`
		ConversationID FlexID       `json:"conversationId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		r.log.Warnw("bad message_history payload", "error", err)
		return
	}
	convID := payload.ConversationID.String()
	if convID == "" {
		return
	}
	messages := make([]Message, 0, len(payload.Messages))
	for _, raw := range payload.Messages {
		messages = append(messages, NormalizeMessage(raw))
	}
	r.store.ReplaceMessagePage(convID, messages, payload.Page, payload.Limit, payload.Total)
}

func (r *Router) onUserTyping(data json.RawMessage) {
	var payload struct {
		Users []FlexID `json:"users"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	users := make([]string, 0, len(payload.Users))
	for _, u := range payload.Users {
		users = append(users, u.String())
	}
	r.store.SetTypingUsers(users)
}

func (r *Router) onConversationsList(data json.RawMessage) {
	conversations, err := DecodeConversationList(data)
	if err != nil {
		r.log.Warnw("bad conversations_list payload", "error", err)
		return
	}
	r.store.ReplaceConversations(conversations)
}

func (r *Router) onJoinedConversation(data json.RawMessage) {
	var payload struct {
		ConversationID FlexID `json:"conversationId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	r.store.SetActiveConversation(payload.ConversationID.String())
}

func (r *Router) onUserJoined(data json.RawMessage) {
	if id, ok := r.presenceDelta(data); ok {
		r.presence.Add(id)
	}
}

// onUserLeft is deliberately not a presence signal. Presence is
// connection-scoped: leaving a conversation does not imply going offline.
// Only explicit online/offline/connect events drive the online set.
func (r *Router) onUserLeft(json.RawMessage) {}

func (r *Router) onUserOnline(data json.RawMessage) {
	if id, ok := r.presenceDelta(data); ok {
		r.presence.Add(id)
	}
}

func (r *Router) onUserOffline(data json.RawMessage) {
	if id, ok := r.presenceDelta(data); ok {
		r.presence.Remove(id)
	}
}

// presenceDelta decodes a {userId} payload, filtering self-events.
func (r *Router) presenceDelta(data json.RawMessage) (string, bool) {
	var payload struct {
		UserID FlexID `json:"userId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", false
	}
	id := payload.UserID.String()
	if id == "" || id == r.store.CurrentUser() {
		return "", false
	}
	return id, true
}

func (r *Router) onOnlineUsers(data json.RawMessage) {
	var payload struct {
		UserIDs []FlexID `json:"userIds"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	ids := make([]string, 0, len(payload.UserIDs))
	for _, id := range payload.UserIDs {
		ids = append(ids, id.String())
	}
	r.presence.ReplaceAll(ids)
}

func (r *Router) onMessagesMarkedRead(data json.RawMessage) {
	var payload struct {
		ConversationID FlexID `json:"conversationId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	if id := payload.ConversationID.String(); id != "" {
		r.store.MarkRead(id)
	}
}

func (r *Router) onMessageStatusUpdate(data json.RawMessage) {
	var payload struct {
		ConversationID FlexID `json:"conversationId"`
		MessageID      FlexID `json:"messageId"`
		Status         string `json:"status"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	r.store.UpdateMessageStatus(
		payload.ConversationID.String(),
		payload.MessageID.String(),
		MessageStatus(payload.Status),
	)
}

func (r *Router) onConnect(json.RawMessage) {
	r.emit(evGetOnlineUsers, nil)
}

// --- outbound operations ---

// JoinConversation asks the server to attach this session to a
// conversation. The store's active conversation is set when the server
// confirms with joined_conversation.
func (r *Router) JoinConversation(conversationID string) error {
	if !IsValidID(conversationID) {
		validationRejectsTotal.WithLabelValues("conversation_id").Inc()
		return ErrInvalidConversationID
	}
	r.emit(evJoinConversation, map[string]string{"conversationId": conversationID})
	return nil
}

// SendMessage validates and sanitizes content, applies the optimistic
// local append, and emits the send. The returned Message is the
// placeholder entry (status sending, id = correlation id); the server echo
// replaces it in place.
func (r *Router) SendMessage(conversationID, content string) (Message, error) {
	if !IsValidID(conversationID) {
		validationRejectsTotal.WithLabelValues("conversation_id").Inc()
		return Message{}, ErrInvalidConversationID
	}
	if !IsValidMessage(content) {
		validationRejectsTotal.WithLabelValues("message").Inc()
		return Message{}, ErrInvalidMessage
	}

	payload := sendMessagePayload{
		ConversationID: conversationID,
		Content:        SanitizeText(content),
		ClientID:       uuid.NewString(),
	}
	if err := validate.Struct(payload); err != nil {
		validationRejectsTotal.WithLabelValues("payload").Inc()
		return Message{}, ErrInvalidMessage
	}

	optimistic := Message{
		ID:       payload.ClientID,
		ClientID: payload.ClientID,
		Content:  payload.Content,
		SenderID: r.store.CurrentUser(),
		SentAt:   NowTimestamp(),
		Status:   StatusSending,
	}
	r.store.AppendOptimistic(conversationID, optimistic)

	r.emit(evSendMessage, payload)
	return optimistic, nil
}

// SetTyping reports the local typing state for a conversation.
func (r *Router) SetTyping(conversationID string, isTyping bool) {
	r.emit(evTyping, map[string]any{
		"conversationId": conversationID,
		"isTyping":       isTyping,
	})
}

// RequestMessages asks for one history page. Fire-and-forget: there is no
// retry or timeout here, any loading indicator is the caller's concern.
func (r *Router) RequestMessages(conversationID string, page int) {
	if page < 1 {
		page = 1
	}
	r.emit(evGetMessages, map[string]any{
		"conversationId": conversationID,
		"page":           page,
		"limit":          r.pageSize,
	})
}

// RequestConversations asks for a fresh conversation list snapshot.
func (r *Router) RequestConversations() {
	r.emit(evGetConversations, nil)
}

// RequestOnlineUsers asks for a presence snapshot.
func (r *Router) RequestOnlineUsers() {
	r.emit(evGetOnlineUsers, nil)
}

// MarkAsRead zeroes the local unread state and tells the server. The
// messages_marked_read confirmation re-applies the same idempotent
// mutation.
func (r *Router) MarkAsRead(conversationID string) {
	r.store.MarkRead(conversationID)
	r.emit(evMarkAsRead, map[string]string{"conversationId": conversationID})
}
