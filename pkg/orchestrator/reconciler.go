package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/go-go-golems/marionette/pkg/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// imageGeneratingText is the persisted placeholder body while an image
// request is in flight, so a reload mid-request does not lose the turn.
const imageGeneratingText = "Generating image…"

// Placeholder is the optimistic assistant message for one in-flight send.
// Handle is its ephemeral identity in the transcript; the canonical store
// ID only exists after reconciliation and the handle is never persisted.
type Placeholder struct {
	Handle         uuid.UUID
	ConversationID string

	// set in image mode only: the placeholder record that was persisted
	// immediately and is updated in place on resolution
	persisted *conversation.Message
}

// Reconciler owns the optimistic placeholders and performs the single
// persistence write per send, folding the result back into canonical
// transcript state.
type Reconciler struct {
	store store.Store

	mu          sync.Mutex
	transcripts map[string]*Transcript
}

func NewReconciler(st store.Store) *Reconciler {
	return &Reconciler{
		store:       st,
		transcripts: map[string]*Transcript{},
	}
}

// Transcript returns the visible transcript for a conversation, creating
// it on first use.
func (r *Reconciler) Transcript(conversationID string) *Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transcripts[conversationID]
	if !ok {
		t = NewTranscript()
		r.transcripts[conversationID] = t
	}
	return t
}

// Load replaces the transcript with the canonical persisted record.
func (r *Reconciler) Load(ctx context.Context, conversationID string) error {
	msgs, err := r.store.ListMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	r.Transcript(conversationID).Replace(msgs)
	return nil
}

// Begin materializes the streaming placeholder: empty content, ephemeral
// handle, appended to the visible transcript.
func (r *Reconciler) Begin(conversationID string) *Placeholder {
	p := &Placeholder{
		Handle:         uuid.New(),
		ConversationID: conversationID,
	}
	r.Transcript(conversationID).Append(conversation.Message{
		ID:             p.Handle.String(),
		ConversationID: conversationID,
		Role:           conversation.RoleAssistant,
	})
	return p
}

// Apply replaces the placeholder content with the cumulative buffer.
// Content is always the full accumulated text, never a delta, so applying
// the same state twice is a no-op.
func (r *Reconciler) Apply(p *Placeholder, completion string) {
	r.Transcript(p.ConversationID).Update(p.Handle.String(), func(msg *conversation.Message) {
		msg.Text = completion
	})
}

// Complete performs the single persistence write for the send, then
// replaces the placeholder wholesale with the canonical transcript. A
// failing post-write reload is logged and does not roll the write back.
func (r *Reconciler) Complete(ctx context.Context, p *Placeholder, final string) (*conversation.Message, error) {
	r.Apply(p, final)

	persisted, err := r.store.AppendMessage(ctx, conversation.NewMessage(p.ConversationID, conversation.RoleAssistant, final))
	if err != nil {
		r.Fail(p, err)
		return nil, err
	}

	if err := r.Load(ctx, p.ConversationID); err != nil {
		log.Warn().Err(err).Str("conversation_id", p.ConversationID).Msg("post-completion reload failed, transcript left optimistic")
	}
	return persisted, nil
}

// Fail annotates the placeholder with a human-readable explanation without
// persisting anything; the transcript stays un-reconciled until the next
// full reload.
func (r *Reconciler) Fail(p *Placeholder, genErr error) {
	r.Transcript(p.ConversationID).Update(p.Handle.String(), func(msg *conversation.Message) {
		msg.Text = annotateError(msg.Text, genErr)
	})
}

func annotateError(text string, err error) string {
	if text == "" {
		return fmt.Sprintf("⚠️ generation failed: %v", err)
	}
	return fmt.Sprintf("%s\n\n⚠️ generation failed: %v", text, err)
}

// BeginImage persists the placeholder immediately so a reload during a
// long-running image request does not lose the turn.
func (r *Reconciler) BeginImage(ctx context.Context, conversationID string) (*Placeholder, error) {
	persisted, err := r.store.AppendMessage(ctx, conversation.NewMessage(conversationID, conversation.RoleAssistant, imageGeneratingText))
	if err != nil {
		return nil, err
	}
	p := &Placeholder{
		Handle:         uuid.New(),
		ConversationID: conversationID,
		persisted:      persisted,
	}
	if err := r.Load(ctx, conversationID); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("transcript reload after image placeholder failed")
	}
	return p, nil
}

// CompleteImage swaps the persisted placeholder's body for the resolved
// image, in place.
func (r *Reconciler) CompleteImage(ctx context.Context, p *Placeholder, img *conversation.ImageRef) (*conversation.Message, error) {
	updated := *p.persisted
	updated.Text = ""
	updated.Image = img
	if err := r.store.UpdateMessage(ctx, &updated); err != nil {
		return nil, err
	}
	if err := r.Load(ctx, p.ConversationID); err != nil {
		log.Warn().Err(err).Str("conversation_id", p.ConversationID).Msg("post-image reload failed")
	}
	return &updated, nil
}

// FailImage records the failure as the placeholder's persisted content, so
// the conversation record reflects what happened.
func (r *Reconciler) FailImage(ctx context.Context, p *Placeholder, genErr error) error {
	updated := *p.persisted
	updated.Text = fmt.Sprintf("⚠️ image generation failed: %v", genErr)
	updated.Image = nil
	if err := r.store.UpdateMessage(ctx, &updated); err != nil {
		return err
	}
	if err := r.Load(ctx, p.ConversationID); err != nil {
		log.Warn().Err(err).Str("conversation_id", p.ConversationID).Msg("post-image-failure reload failed")
	}
	return nil
}
