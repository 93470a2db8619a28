package store

import (
	"context"
	"testing"
	"time"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendMessageAssignsIDAndBumpsConversation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	conv, err := s.CreateConversation(ctx, "alice", "test")
	require.NoError(t, err)
	createdUpdatedAt := conv.UpdatedAt

	time.Sleep(time.Millisecond)
	msg, err := s.AppendMessage(ctx, conversation.NewMessage(conv.ID, conversation.RoleUser, "hello"))
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	convs, err := s.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.True(t, convs[0].UpdatedAt.After(createdUpdatedAt))
}

func TestAppendMessageUnknownConversation(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.AppendMessage(context.Background(), conversation.NewMessage("nope", conversation.RoleUser, "hello"))
	require.Error(t, err)
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
}

func TestListMessagesOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	conv, err := s.CreateConversation(ctx, "alice", "ordering")
	require.NoError(t, err)

	base := time.Now()
	for i, text := range []string{"first", "second", "third"} {
		_, err := s.AppendMessage(ctx, conversation.NewMessage(conv.ID, conversation.RoleUser, text,
			conversation.WithCreatedAt(base.Add(time.Duration(i)*time.Millisecond))))
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, "third", msgs[2].Text)
}

func TestListMessagesBreaksTiesByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	conv, err := s.CreateConversation(ctx, "alice", "ties")
	require.NoError(t, err)

	ts := time.Now()
	for _, text := range []string{"a", "b", "c"} {
		_, err := s.AppendMessage(ctx, conversation.NewMessage(conv.ID, conversation.RoleUser, text,
			conversation.WithCreatedAt(ts)))
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})
}

func TestDeleteConversationCascades(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	conv, err := s.CreateConversation(ctx, "alice", "doomed")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conversation.NewMessage(conv.ID, conversation.RoleUser, "hello"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, conv.ID))

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestUpdateMessagePreservesIdentityFields(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	conv, err := s.CreateConversation(ctx, "alice", "update")
	require.NoError(t, err)
	msg, err := s.AppendMessage(ctx, conversation.NewMessage(conv.ID, conversation.RoleAssistant, "Generating image…"))
	require.NoError(t, err)

	updated := *msg
	updated.Text = ""
	updated.Image = &conversation.ImageRef{MediaType: "image/png", Data: []byte{1, 2, 3}}
	require.NoError(t, s.UpdateMessage(ctx, &updated))

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
	assert.Equal(t, msg.CreatedAt, msgs[0].CreatedAt)
	require.NotNil(t, msgs[0].Image)
	assert.Equal(t, "image/png", msgs[0].Image.MediaType)
}

func TestProviderConfigLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	cfg, err := s.UpsertProviderConfig(ctx, "alice", &conversation.ProviderConfig{
		Name:       "gemini flash",
		Capability: conversation.CapabilityChat,
		Model:      "gemini-2.0-flash",
		Active:     true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, cfg.ID)

	cfg.Model = "gemini-2.5-pro"
	_, err = s.UpsertProviderConfig(ctx, "alice", cfg)
	require.NoError(t, err)

	cfgs, err := s.ListProviderConfigs(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, "gemini-2.5-pro", cfgs[0].Model)

	other, err := s.ListProviderConfigs(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.DeleteProviderConfig(ctx, cfg.ID))
	require.Error(t, s.DeleteProviderConfig(ctx, cfg.ID))
}
