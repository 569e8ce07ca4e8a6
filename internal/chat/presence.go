// internal/chat/presence.go

package chat

import "sync"

// Presence tracks which participant identifiers currently hold an active
// real-time connection. Identifiers are normalized before comparison so
// mixed numeric/string ids from the transport compare equal. Presence is
// connection-scoped: it is driven only by explicit online/offline/connect
// events, never by conversation membership changes (user_left is not an
// offline signal).
type Presence struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewPresence() *Presence {
	return &Presence{
		online: make(map[string]struct{}),
	}
}

// ReplaceAll wholesale replaces the online set.
func (p *Presence) ReplaceAll(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if n := NormalizeID(id); n != "" {
			next[n] = struct{}{}
		}
	}
	p.mu.Lock()
	p.online = next
	p.mu.Unlock()
}

// Add marks an identifier online. Adding a present id is a no-op.
func (p *Presence) Add(id any) {
	n := NormalizeID(id)
	if n == "" {
		return
	}
	p.mu.Lock()
	p.online[n] = struct{}{}
	p.mu.Unlock()
}

// Remove marks an identifier offline. Removing an absent id is a no-op.
func (p *Presence) Remove(id any) {
	n := NormalizeID(id)
	if n == "" {
		return
	}
	p.mu.Lock()
	delete(p.online, n)
	p.mu.Unlock()
}

// IsOnline reports membership for an identifier of any runtime type.
func (p *Presence) IsOnline(id any) bool {
	n := NormalizeID(id)
	if n == "" {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[n]
	return ok
}

// Online returns a snapshot of the online set.
func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	return out
}

// IsOtherParticipantOnline resolves the other participant of a direct
// conversation and checks presence. ok is false when resolution fails
// (group conversation, unset local user, or ambiguous participant list);
// callers must treat that as unknown, never as offline.
func (p *Presence) IsOtherParticipantOnline(c Conversation, localUserID string) (online bool, ok bool) {
	other, ok := OtherParticipant(c, localUserID)
	if !ok {
		return false, false
	}
	return p.IsOnline(other.ID), true
}
