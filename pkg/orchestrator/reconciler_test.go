package orchestrator

import (
	"context"
	"testing"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/go-go-golems/marionette/pkg/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyIsIdempotent(t *testing.T) {
	r := NewReconciler(store.NewInMemoryStore())
	p := r.Begin("c1")

	r.Apply(p, "Hi there")
	first := r.Transcript("c1").Snapshot()

	r.Apply(p, "Hi there")
	second := r.Transcript("c1").Snapshot()

	assert.Equal(t, first, second)
	require.Len(t, second, 1)
	assert.Equal(t, "Hi there", second[0].Text)
}

func TestApplyReplacesNotAppends(t *testing.T) {
	r := NewReconciler(store.NewInMemoryStore())
	p := r.Begin("c1")

	r.Apply(p, "Hi")
	r.Apply(p, "Hi there")
	r.Apply(p, "Hi there!")

	snapshot := r.Transcript("c1").Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Hi there!", snapshot[0].Text)
}

func TestCompleteSwapsPlaceholderForCanonicalRecord(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()
	conv, err := st.CreateConversation(ctx, "alice", "t")
	require.NoError(t, err)

	r := NewReconciler(st)
	p := r.Begin(conv.ID)
	r.Apply(p, "partial")

	msg, err := r.Complete(ctx, p, "final answer")
	require.NoError(t, err)
	assert.Equal(t, "final answer", msg.Text)
	assert.NotEmpty(t, msg.ID)

	snapshot := r.Transcript(conv.ID).Snapshot()
	require.Len(t, snapshot, 1)
	// the ephemeral handle is gone, only the store-assigned identity remains
	assert.Equal(t, msg.ID, snapshot[0].ID)
	assert.NotEqual(t, p.Handle.String(), snapshot[0].ID)

	msgs, err := st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "final answer", msgs[0].Text)
}

func TestCompleteAppendFailureFallsBackToAnnotation(t *testing.T) {
	r := NewReconciler(store.NewInMemoryStore())
	// the conversation was never created, so the append is rejected
	p := r.Begin("missing")
	r.Apply(p, "partial")

	_, err := r.Complete(context.Background(), p, "final")
	require.Error(t, err)

	snapshot := r.Transcript("missing").Snapshot()
	require.Len(t, snapshot, 1)
	assert.Contains(t, snapshot[0].Text, "generation failed")
	assert.Contains(t, snapshot[0].Text, "final")
}

func TestFailKeepsPartialContent(t *testing.T) {
	r := NewReconciler(store.NewInMemoryStore())
	p := r.Begin("c1")
	r.Apply(p, "partial text")

	r.Fail(p, errors.New("boom"))

	snapshot := r.Transcript("c1").Snapshot()
	require.Len(t, snapshot, 1)
	assert.Contains(t, snapshot[0].Text, "partial text")
	assert.Contains(t, snapshot[0].Text, "boom")
}

func TestFailOnEmptyPlaceholder(t *testing.T) {
	r := NewReconciler(store.NewInMemoryStore())
	p := r.Begin("c1")

	r.Fail(p, errors.New("boom"))

	snapshot := r.Transcript("c1").Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "⚠️ generation failed: boom", snapshot[0].Text)
}

func TestBeginImagePersistsImmediately(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()
	conv, err := st.CreateConversation(ctx, "alice", "t")
	require.NoError(t, err)

	r := NewReconciler(st)
	p, err := r.BeginImage(ctx, conv.ID)
	require.NoError(t, err)

	msgs, err := st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, imageGeneratingText, msgs[0].Text)
	assert.Equal(t, conversation.RoleAssistant, msgs[0].Role)

	img := &conversation.ImageRef{MediaType: "image/png", Data: []byte{1}}
	updated, err := r.CompleteImage(ctx, p, img)
	require.NoError(t, err)
	assert.Equal(t, msgs[0].ID, updated.ID)

	msgs, err = st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "", msgs[0].Text)
	require.NotNil(t, msgs[0].Image)
	assert.Equal(t, []byte{1}, msgs[0].Image.Data)
}

func TestTranscriptUpdateMissingIDIsNoop(t *testing.T) {
	tr := NewTranscript()
	tr.Append(conversation.Message{ID: "a", Text: "hello"})

	tr.Update("missing", func(msg *conversation.Message) {
		msg.Text = "changed"
	})

	snapshot := tr.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "hello", snapshot[0].Text)
}

func TestTranscriptSnapshotIsIsolated(t *testing.T) {
	tr := NewTranscript()
	tr.Append(conversation.Message{ID: "a", Text: "hello"})

	snapshot := tr.Snapshot()
	snapshot[0].Text = "mutated"

	assert.Equal(t, "hello", tr.Snapshot()[0].Text)
}
