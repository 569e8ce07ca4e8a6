// internal/api/client.go
// REST seed client. Used once at session start to populate the store
// before the transport connection is assumed live; the response shape
// matches the conversations_list event payload.

package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mamoon-17/SpendSense-sub001/internal/chat"
)

const defaultTimeout = 15 * time.Second

// Client talks to the chat REST API with a bearer credential.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    4,
		IdleConnTimeout: 30 * time.Second,
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Transport: tr, Timeout: defaultTimeout},
	}
}

// GetConversations fetches the conversation list snapshot used to seed
// the store.
func (c *Client) GetConversations(ctx context.Context) ([]chat.Conversation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/messages/conversations", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: conversations fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("api: conversations fetch returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return chat.DecodeConversationList(body)
}
