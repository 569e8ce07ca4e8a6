// internal/chat/normalize_test.go

package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMessageSenderShapes(t *testing.T) {
	// sender as an object
	var raw RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 42,
		"conversation_id": "conv-aaa1",
		"sender": {"id": 7, "display_name": "Jordan", "username": "jordan42"},
		"content": "hi",
		"sent_at": "2026-01-01T10:00:00.000Z",
		"status": "delivered"
	}`), &raw))

	msg := NormalizeMessage(raw)
	assert.Equal(t, "42", msg.ID)
	assert.Equal(t, "7", msg.SenderID)
	assert.Equal(t, "Jordan", msg.SenderDisplayName)
	assert.Equal(t, StatusDelivered, msg.Status)

	// sender as a bare id, status missing
	raw = RawMessage{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "m1",
		"sender": "user-0002",
		"content": "hello"
	}`), &raw))

	msg = NormalizeMessage(raw)
	assert.Equal(t, "user-0002", msg.SenderID)
	assert.Equal(t, StatusSent, msg.Status)

	// sender absent, bare sender_id field
	raw = RawMessage{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "m2",
		"sender_id": 9,
		"content": "hey"
	}`), &raw))
	assert.Equal(t, "9", NormalizeMessage(raw).SenderID)
}

func TestNormalizeMessageUnknownStatusDefaultsToSent(t *testing.T) {
	msg := NormalizeMessage(RawMessage{ID: "m1", Status: "weird"})
	assert.Equal(t, StatusSent, msg.Status)
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "5", NormalizeID(5))
	assert.Equal(t, "5", NormalizeID(float64(5)))
	assert.Equal(t, "5", NormalizeID(" 5 "))
	assert.Equal(t, "9000000001", NormalizeID(int64(9000000001)))
	assert.Equal(t, "", NormalizeID(nil))
}

func TestDecodeConversationList(t *testing.T) {
	payload := []byte(`{"conversations": [
		{
			"id": 11,
			"type": "group",
			"name": "Budget crew",
			"participants": [
				{"id": "user-0001", "display_name": "Me"},
				"user-0002",
				{"id": "user-0001"}
			],
			"unread_count": 2,
			"last_message": {"id": "m9", "sender": 5, "content": "hi", "sent_at": "2026-01-01T10:00:00.000Z"},
			"last_message_at": "2026-01-01T10:00:00.000Z"
		},
		{"id": "conv-bbb2", "kind": "direct"}
	]}`)

	conversations, err := DecodeConversationList(payload)
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	group := conversations[0]
	assert.Equal(t, "11", group.ID)
	assert.Equal(t, KindGroup, group.Kind)
	// duplicate participant ids collapse, bare-id entries are accepted
	require.Len(t, group.Participants, 2)
	assert.Equal(t, "user-0002", group.Participants[1].ID)
	assert.Equal(t, 2, group.UnreadCount)
	require.NotNil(t, group.LastMessage)
	assert.Equal(t, "5", group.LastMessage.SenderID)
	// last_message_at is accepted as the activity timestamp
	assert.Equal(t, "2026-01-01T10:00:00.000Z", group.LastActivityAt)

	direct := conversations[1]
	assert.Equal(t, KindDirect, direct.Kind)
	assert.Empty(t, direct.Messages)
	assert.Equal(t, 1, direct.Page)
}

func TestDecodeConversationListRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeConversationList([]byte(`{"conversations": [`))
	assert.Error(t, err)
}
