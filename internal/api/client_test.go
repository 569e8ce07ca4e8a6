// internal/api/client_test.go

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamoon-17/SpendSense-sub001/internal/chat"
)

func TestGetConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/messages/conversations", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversations": [
			{"id": "conv-aaa1", "kind": "direct", "unread_count": 1},
			{"id": 7, "type": "group", "name": "Budget crew"}
		]}`))
	}))
	defer srv.Close()

	conversations, err := NewClient(srv.URL, "test-token").GetConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, "conv-aaa1", conversations[0].ID)
	assert.Equal(t, 1, conversations[0].UnreadCount)
	assert.Equal(t, "7", conversations[1].ID)
	assert.Equal(t, chat.KindGroup, conversations[1].Kind)
}

func TestGetConversationsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad-token").GetConversations(context.Background())
	assert.Error(t, err)
}
