package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

func idPtr(s string) *domain.ID {
	id := domain.ID(s)
	return &id
}

func contents(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Content)
	}
	return out
}

func TestScope_Validate(t *testing.T) {
	require.NoError(t, ChannelScope("1").Validate())
	require.NoError(t, DirectScope("7").Validate())
	require.ErrorIs(t, Scope{}.Validate(), ErrInvalidScope)
	require.ErrorIs(t, Scope{ChannelID: "1", RecipientID: "7"}.Validate(), ErrInvalidScope)
}

func TestScope_Matches(t *testing.T) {
	ch := ChannelScope("1")
	assert.True(t, ch.Matches(domain.Message{ChannelID: idPtr("1")}))
	assert.False(t, ch.Matches(domain.Message{ChannelID: idPtr("2")}))
	assert.False(t, ch.Matches(domain.Message{RecipientID: idPtr("1")}))

	dm := DirectScope("7")
	assert.True(t, dm.Matches(domain.Message{SenderID: "7", RecipientID: idPtr("3")}))
	assert.True(t, dm.Matches(domain.Message{SenderID: "3", RecipientID: idPtr("7")}))
	assert.False(t, dm.Matches(domain.Message{SenderID: "8", RecipientID: idPtr("3")}))
	assert.False(t, dm.Matches(domain.Message{SenderID: "7", ChannelID: idPtr("1")}))
}

func TestTimeline_SendIsPendingThenReconciledByNonce(t *testing.T) {
	tl, err := NewTimeline(ChannelScope("1"), "3")
	require.NoError(t, err)

	out, err := tl.Send("hello")
	require.NoError(t, err)
	require.NotEmpty(t, out.ClientNonce)
	require.NotNil(t, out.ChannelID)
	assert.Nil(t, out.RecipientID)
	assert.Equal(t, 1, tl.PendingCount())

	entries := tl.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Pending)

	require.True(t, tl.Receive(domain.Message{
		ID: "100", SenderID: "3", Content: "hello", ChannelID: idPtr("1"), ClientNonce: out.ClientNonce,
	}))

	entries = tl.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Pending)
	assert.Equal(t, domain.ID("100"), entries[0].ID)
}

func TestTimeline_EchoWithoutNonceMatchesOldestPending(t *testing.T) {
	tl, err := NewTimeline(ChannelScope("1"), "3")
	require.NoError(t, err)

	_, err = tl.Send("same")
	require.NoError(t, err)
	_, err = tl.Send("same")
	require.NoError(t, err)

	require.True(t, tl.Receive(domain.Message{ID: "1", SenderID: "3", Content: "same", ChannelID: idPtr("1")}))

	entries := tl.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Pending)
	assert.True(t, entries[1].Pending)
}

func TestTimeline_OtherSendersAppendInDeliveryOrder(t *testing.T) {
	tl, err := NewTimeline(ChannelScope("1"), "3")
	require.NoError(t, err)

	_, err = tl.Send("mine")
	require.NoError(t, err)
	tl.Receive(domain.Message{ID: "1", SenderID: "9", Content: "mine", ChannelID: idPtr("1")})
	tl.Receive(domain.Message{ID: "2", SenderID: "9", Content: "second", ChannelID: idPtr("1")})

	entries := tl.Entries()
	assert.Equal(t, []string{"mine", "mine", "second"}, contents(entries))
	assert.True(t, entries[0].Pending)
}

func TestTimeline_IgnoresOtherScopesAndDuplicates(t *testing.T) {
	tl, err := NewTimeline(ChannelScope("1"), "")
	require.NoError(t, err)

	assert.False(t, tl.Receive(domain.Message{ID: "1", Content: "elsewhere", ChannelID: idPtr("2")}))
	assert.True(t, tl.Receive(domain.Message{ID: "2", Content: "here", ChannelID: idPtr("1")}))
	assert.True(t, tl.Receive(domain.Message{ID: "2", Content: "here", ChannelID: idPtr("1")}))

	assert.Equal(t, []string{"here"}, contents(tl.Entries()))
}

func TestTimeline_DirectPeerMessageDoesNotReconcile(t *testing.T) {
	tl, err := NewTimeline(DirectScope("7"), "")
	require.NoError(t, err)

	out, err := tl.Send("hi")
	require.NoError(t, err)
	require.NotNil(t, out.RecipientID)
	assert.Equal(t, domain.ID("7"), *out.RecipientID)

	tl.Receive(domain.Message{ID: "1", SenderID: "7", RecipientID: idPtr("3"), Content: "hi"})
	assert.Equal(t, 1, tl.PendingCount())

	tl.Receive(domain.Message{ID: "2", SenderID: "3", RecipientID: idPtr("7"), Content: "hi"})
	assert.Equal(t, 0, tl.PendingCount())
}

func TestTimeline_LoadKeepsLiveEntries(t *testing.T) {
	tl, err := NewTimeline(ChannelScope("1"), "3")
	require.NoError(t, err)

	tl.Receive(domain.Message{ID: "5", Content: "live", ChannelID: idPtr("1")})
	_, err = tl.Send("draft")
	require.NoError(t, err)

	tl.Load([]domain.Message{
		{ID: "4", Content: "old", ChannelID: idPtr("1")},
		{ID: "5", Content: "live", ChannelID: idPtr("1")},
		{ID: "6", Content: "wrong room", ChannelID: idPtr("2")},
	})

	assert.Equal(t, []string{"old", "live", "draft"}, contents(tl.Entries()))
}

func TestTimeline_DropAndEmpty(t *testing.T) {
	tl, err := NewTimeline(ChannelScope("1"), "3")
	require.NoError(t, err)

	_, err = tl.Send("   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	out, err := tl.Send("oops")
	require.NoError(t, err)
	assert.True(t, tl.Drop(out.ClientNonce))
	assert.False(t, tl.Drop(out.ClientNonce))
	assert.Empty(t, tl.Entries())
}

func TestTimeline_SendDuringHistoryLoadIsNotDuplicated(t *testing.T) {
	tl, err := NewTimeline(ChannelScope("1"), "3")
	require.NoError(t, err)

	out, err := tl.Send("hi")
	require.NoError(t, err)

	echo := domain.Message{ID: "100", SenderID: "3", Content: "hi", ChannelID: idPtr("1"), ClientNonce: out.ClientNonce}
	tl.Load([]domain.Message{echo})

	entries := tl.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Pending)
	assert.Equal(t, 0, tl.PendingCount())

	require.True(t, tl.Receive(echo))
	entries = tl.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ID("100"), entries[0].ID)
}

func TestTimeline_LoadMatchesPendingBySenderAndContent(t *testing.T) {
	tl, err := NewTimeline(ChannelScope("1"), "3")
	require.NoError(t, err)

	_, err = tl.Send("hi")
	require.NoError(t, err)
	_, err = tl.Send("later")
	require.NoError(t, err)

	tl.Load([]domain.Message{{ID: "100", SenderID: "3", Content: "hi", ChannelID: idPtr("1")}})

	entries := tl.Entries()
	assert.Equal(t, []string{"hi", "later"}, contents(entries))
	assert.False(t, entries[0].Pending)
	assert.True(t, entries[1].Pending)
}

func TestTimeline_KnownIDRetiresPendingEntry(t *testing.T) {
	tl, err := NewTimeline(ChannelScope("1"), "3")
	require.NoError(t, err)

	require.True(t, tl.Receive(domain.Message{ID: "100", SenderID: "3", Content: "hi", ChannelID: idPtr("1")}))
	out, err := tl.Send("hi")
	require.NoError(t, err)

	require.True(t, tl.Receive(domain.Message{
		ID: "100", SenderID: "3", Content: "hi", ChannelID: idPtr("1"), ClientNonce: out.ClientNonce,
	}))

	entries := tl.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ID("100"), entries[0].ID)
	assert.Equal(t, 0, tl.PendingCount())
}
