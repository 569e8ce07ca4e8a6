// internal/chat/presence_test.go

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceNormalizesMixedIDTypes(t *testing.T) {
	p := NewPresence()

	p.Add("5")
	assert.True(t, p.IsOnline(5))
	assert.True(t, p.IsOnline(" 5 "))
	assert.True(t, p.IsOnline(float64(5)))

	p.Remove(5)
	assert.False(t, p.IsOnline("5"))
}

func TestPresenceIdempotentDeltas(t *testing.T) {
	p := NewPresence()

	assert.NotPanics(t, func() { p.Remove("999") })

	p.Add("user-0002")
	p.Add("user-0002")
	assert.Len(t, p.Online(), 1)
}

func TestPresenceReplaceAll(t *testing.T) {
	p := NewPresence()
	p.Add("user-0001")

	p.ReplaceAll([]string{"user-0002", "user-0003"})
	assert.False(t, p.IsOnline("user-0001"))
	assert.True(t, p.IsOnline("user-0002"))
	assert.True(t, p.IsOnline("user-0003"))
}

func TestOtherParticipantResolution(t *testing.T) {
	direct := Conversation{
		ID:   "conv-aaa1",
		Kind: KindDirect,
		Participants: []Participant{
			{ID: "user-0001", DisplayName: "Me"},
			{ID: "user-0002", DisplayName: "Them"},
		},
	}

	other, ok := OtherParticipant(direct, "user-0001")
	assert.True(t, ok)
	assert.Equal(t, "user-0002", other.ID)

	// unset local user: resolution must fail, never guess
	_, ok = OtherParticipant(direct, "")
	assert.False(t, ok)

	// group conversations have no "other" participant
	group := direct
	group.Kind = KindGroup
	_, ok = OtherParticipant(group, "user-0001")
	assert.False(t, ok)

	// multiple remaining after filtering is ambiguous
	crowded := direct
	crowded.Participants = append(crowded.Participants, Participant{ID: "user-0003"})
	_, ok = OtherParticipant(crowded, "user-0001")
	assert.False(t, ok)

	// zero remaining is equally unresolved
	solo := Conversation{Kind: KindDirect, Participants: []Participant{{ID: "user-0001"}}}
	_, ok = OtherParticipant(solo, "user-0001")
	assert.False(t, ok)
}

func TestIsOtherParticipantOnline(t *testing.T) {
	p := NewPresence()
	p.Add("user-0002")

	direct := Conversation{
		Kind: KindDirect,
		Participants: []Participant{
			{ID: "user-0001"}, {ID: "user-0002"},
		},
	}

	online, ok := p.IsOtherParticipantOnline(direct, "user-0001")
	assert.True(t, ok)
	assert.True(t, online)

	p.Remove("user-0002")
	online, ok = p.IsOtherParticipantOnline(direct, "user-0001")
	assert.True(t, ok)
	assert.False(t, online)

	_, ok = p.IsOtherParticipantOnline(direct, "")
	assert.False(t, ok)
}

func TestDisplayLabelFallbacks(t *testing.T) {
	named := Conversation{Name: "Savings squad", Kind: KindGroup}
	assert.Equal(t, "Savings squad", DisplayLabel(named, "user-0001"))

	direct := Conversation{
		Kind: KindDirect,
		Participants: []Participant{
			{ID: "user-0001"},
			{ID: "user-0002", DisplayName: "Jordan", Username: "jordan42"},
		},
	}
	assert.Equal(t, "Jordan", DisplayLabel(direct, "user-0001"))

	direct.Participants[1].DisplayName = ""
	assert.Equal(t, "jordan42", DisplayLabel(direct, "user-0001"))

	// unresolvable: explicit fallback, not an arbitrary participant
	assert.Equal(t, "Unknown conversation", DisplayLabel(direct, ""))
}
