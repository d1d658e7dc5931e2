package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

func TestConversationStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()
	defer store.Close()

	conv, err := store.CreateConversation(ctx, "user-1", "greetings")
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "greetings", got.Title)
}

func TestConversationStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()
	defer store.Close()

	_, err := store.GetConversation(ctx, "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_MessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()
	defer store.Close()

	conv, err := store.CreateConversation(ctx, "", "")
	require.NoError(t, err)

	require.NoError(t, store.AddMessage(ctx, &domain.Message{
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        "hello",
	}))
	require.NoError(t, store.AddMessage(ctx, &domain.Message{
		ConversationID: conv.ID,
		Role:           domain.RoleAssistant,
		Content:        "hi there",
		Sources:        []domain.Source{{Excerpt: "greeting docs", Origin: "manual", Score: 0.92}},
	}))

	msgs, err := store.GetMessages(ctx, conv.ID)
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hi there", msgs[1].Content)
	require.Len(t, msgs[1].Sources, 1)
	assert.Equal(t, "manual", msgs[1].Sources[0].Origin)
}

func TestConversationStore_AddMessageToMissing(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()
	defer store.Close()

	err := store.AddMessage(ctx, &domain.Message{ConversationID: "absent", Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_FindByUserIDOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()
	defer store.Close()

	older, err := store.CreateConversation(ctx, "user-1", "older")
	require.NoError(t, err)
	_, err = store.CreateConversation(ctx, "someone-else", "irrelevant")
	require.NoError(t, err)
	newer, err := store.CreateConversation(ctx, "user-1", "newer")
	require.NoError(t, err)

	// Bump the newer conversation so ordering is unambiguous.
	require.NoError(t, store.AddMessage(ctx, &domain.Message{
		ConversationID: newer.ID,
		Role:           domain.RoleUser,
		Content:        "bump",
		CreatedAt:      time.Now().UTC().Add(time.Second),
	}))

	convs, err := store.FindByUserID(ctx, "user-1")
	require.NoError(t, err)

	require.Len(t, convs, 2)
	assert.Equal(t, newer.ID, convs[0].ID)
	assert.Equal(t, older.ID, convs[1].ID)
}

func TestConversationStore_UpdateTitle(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()
	defer store.Close()

	conv, err := store.CreateConversation(ctx, "", "")
	require.NoError(t, err)

	require.NoError(t, store.UpdateTitle(ctx, conv.ID, "renamed"))

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
}

func TestConversationStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()
	defer store.Close()

	conv, err := store.CreateConversation(ctx, "", "")
	require.NoError(t, err)

	require.NoError(t, store.DeleteConversation(ctx, conv.ID))

	_, err = store.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_ExpiredEntryIsAbsent(t *testing.T) {
	ctx := context.Background()
	// Long sweep interval: expiry is enforced lazily on read.
	store := NewConversationStore(WithTTL(20*time.Millisecond), WithSweepInterval(time.Hour))
	defer store.Close()

	conv, err := store.CreateConversation(ctx, "", "")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = store.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_AccessRefreshesIdleClock(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore(WithTTL(60*time.Millisecond), WithSweepInterval(time.Hour))
	defer store.Close()

	conv, err := store.CreateConversation(ctx, "", "")
	require.NoError(t, err)

	// Keep touching the conversation past its original TTL.
	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		_, err = store.GetConversation(ctx, conv.ID)
		require.NoError(t, err)
	}
}

func TestConversationStore_SweeperEvicts(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore(WithTTL(10*time.Millisecond), WithSweepInterval(20*time.Millisecond))
	defer store.Close()

	_, err := store.CreateConversation(ctx, "", "")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return store.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
