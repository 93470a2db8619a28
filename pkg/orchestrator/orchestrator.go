package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/go-go-golems/marionette/pkg/blob"
	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/go-go-golems/marionette/pkg/engine"
	"github.com/go-go-golems/marionette/pkg/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrSendInFlight rejects a second send for a conversation that already has
// one in flight. Sends to other conversations proceed independently.
var ErrSendInFlight = errors.New("a send is already in flight for this conversation")

type State string

const (
	StateIdle                 State = "idle"
	StateAttachmentUploading  State = "attachment-uploading"
	StateUserMessagePersisted State = "user-message-persisted"
	StateDispatchedChat       State = "dispatched-chat"
	StateDispatchedImage      State = "dispatched-image"
	StateReconciling          State = "reconciling"
)

// FileUpload is a newly attached file accompanying the user turn.
type FileUpload struct {
	Name      string
	Data      []byte
	MediaType string
}

type SendInput struct {
	Owner string
	// empty ConversationID creates a conversation lazily on first send
	ConversationID string
	Text           string
	File           *FileUpload
	// the active provider configuration; its capability tag selects the
	// adapter, there is no per-request override
	Provider conversation.ProviderConfig
}

// SendResult reports the terminal outcome of one orchestrated send. Err
// carries a generation/reconciliation failure that was already folded into
// the transcript as a visible annotation; the turn is never dropped.
type SendResult struct {
	ConversationID   string
	UserMessage      *conversation.Message
	AssistantMessage *conversation.Message
	Err              error
}

// Orchestrator drives one send through upload, persistence, dispatch and
// reconciliation. At most one send per conversation is in flight.
type Orchestrator struct {
	store      store.Store
	uploader   blob.Uploader
	registry   *engine.Registry
	reconciler *Reconciler

	mu       sync.Mutex
	inflight map[string]struct{}

	stateHook func(conversationID string, state State)
}

type Option func(*Orchestrator)

// WithStateHook observes state transitions; used by tests and status UIs.
func WithStateHook(hook func(conversationID string, state State)) Option {
	return func(o *Orchestrator) {
		o.stateHook = hook
	}
}

func NewOrchestrator(st store.Store, uploader blob.Uploader, registry *engine.Registry, options ...Option) *Orchestrator {
	ret := &Orchestrator{
		store:      st,
		uploader:   uploader,
		registry:   registry,
		reconciler: NewReconciler(st),
		inflight:   map[string]struct{}{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (o *Orchestrator) Reconciler() *Reconciler {
	return o.reconciler
}

func (o *Orchestrator) setState(conversationID string, state State) {
	if o.stateHook != nil {
		o.stateHook(conversationID, state)
	}
}

func (o *Orchestrator) acquire(conversationID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inflight[conversationID]; ok {
		return false
	}
	o.inflight[conversationID] = struct{}{}
	return true
}

func (o *Orchestrator) release(conversationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, conversationID)
}

// Send runs the full pipeline for one user turn and returns once the send
// is reconciled. Pre-dispatch failures (store, single-flight) are returned
// as errors; failures after dispatch are annotated into the transcript and
// reported through SendResult.Err so the turn is never silently dropped.
func (o *Orchestrator) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, errors.New("empty message text")
	}

	conversationID := in.ConversationID
	if conversationID == "" {
		conv, err := o.store.CreateConversation(ctx, in.Owner, conversation.DeriveTitle(in.Text))
		if err != nil {
			return nil, err
		}
		conversationID = conv.ID
		log.Debug().Str("conversation_id", conversationID).Str("title", conv.Title).Msg("created conversation")
	}

	if !o.acquire(conversationID) {
		return nil, ErrSendInFlight
	}
	defer o.release(conversationID)
	defer o.setState(conversationID, StateIdle)

	att := o.uploadAttachment(ctx, conversationID, in.File)

	userMsg := conversation.NewMessage(conversationID, conversation.RoleUser, in.Text)
	if att != nil {
		userMsg.Attachments = []conversation.Attachment{*att}
	}
	persistedUser, err := o.store.AppendMessage(ctx, userMsg)
	if err != nil {
		return nil, err
	}
	o.setState(conversationID, StateUserMessagePersisted)

	if err := o.reconciler.Load(ctx, conversationID); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("pre-dispatch reload failed, composing from optimistic transcript")
	}
	history := historyBefore(o.reconciler.Transcript(conversationID).Snapshot(), persistedUser.ID)

	result := &SendResult{
		ConversationID: conversationID,
		UserMessage:    persistedUser,
	}

	switch in.Provider.Capability {
	case conversation.CapabilityImage:
		o.setState(conversationID, StateDispatchedImage)
		err = o.sendImage(ctx, conversationID, in, result)
	default:
		o.setState(conversationID, StateDispatchedChat)
		err = o.sendChat(ctx, conversationID, in, history, *persistedUser, att, result)
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// uploadAttachment runs the AttachmentUploading phase. An upload failure
// degrades to the local inline preview instead of aborting the send.
func (o *Orchestrator) uploadAttachment(ctx context.Context, conversationID string, file *FileUpload) *conversation.Attachment {
	if file == nil {
		return nil
	}
	o.setState(conversationID, StateAttachmentUploading)

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = conversation.MediaTypeForFile(file.Name)
	}

	url, err := o.uploader.Upload(ctx, file.Name, file.Data)
	if err != nil {
		log.Warn().Err(err).Str("file", file.Name).Msg("attachment upload failed, falling back to inline preview")
		return &conversation.Attachment{Name: file.Name, Data: file.Data, MediaType: mediaType}
	}
	return &conversation.Attachment{Name: file.Name, URL: url, MediaType: mediaType}
}

func (o *Orchestrator) sendChat(
	ctx context.Context,
	conversationID string,
	in SendInput,
	history []conversation.Message,
	current conversation.Message,
	att *conversation.Attachment,
	result *SendResult,
) error {
	p := o.reconciler.Begin(conversationID)

	eng, err := o.registry.Chat()
	if err != nil {
		o.setState(conversationID, StateReconciling)
		o.reconciler.Fail(p, err)
		result.Err = err
		return nil
	}

	done := make(chan struct{})
	cb := engine.StreamCallbacks{
		OnChunk: func(_ string, completion string) {
			o.reconciler.Apply(p, completion)
		},
		OnComplete: func(text string) {
			o.setState(conversationID, StateReconciling)
			msg, err := o.reconciler.Complete(ctx, p, text)
			if err != nil {
				result.Err = err
			} else {
				result.AssistantMessage = msg
			}
			close(done)
		},
		OnError: func(genErr error) {
			o.setState(conversationID, StateReconciling)
			o.reconciler.Fail(p, genErr)
			result.Err = genErr
			close(done)
		},
	}

	eng.ChatStream(ctx, &engine.ChatRequest{
		Model:         in.Provider.Model,
		APIKey:        in.Provider.APIKey,
		BaseURL:       in.Provider.BaseURL,
		History:       history,
		Current:       current,
		NewAttachment: att,
	}, cb)

	<-done
	return nil
}

func (o *Orchestrator) sendImage(ctx context.Context, conversationID string, in SendInput, result *SendResult) error {
	p, err := o.reconciler.BeginImage(ctx, conversationID)
	if err != nil {
		return err
	}

	eng, err := o.registry.Image()
	if err != nil {
		o.setState(conversationID, StateReconciling)
		if failErr := o.reconciler.FailImage(ctx, p, err); failErr != nil {
			log.Warn().Err(failErr).Msg("failed to persist image failure annotation")
		}
		result.Err = err
		return nil
	}

	img, genErr := eng.GenerateImage(ctx, &engine.ImageRequest{
		Model:   in.Provider.Model,
		APIKey:  in.Provider.APIKey,
		BaseURL: in.Provider.BaseURL,
		Prompt:  in.Text,
	})
	o.setState(conversationID, StateReconciling)

	if genErr != nil {
		if failErr := o.reconciler.FailImage(ctx, p, genErr); failErr != nil {
			log.Warn().Err(failErr).Msg("failed to persist image failure annotation")
		}
		result.Err = genErr
		return nil
	}

	msg, err := o.reconciler.CompleteImage(ctx, p, img)
	if err != nil {
		result.Err = err
		return nil
	}
	result.AssistantMessage = msg
	return nil
}

// historyBefore strips the just-persisted user message (and anything after
// it) from the snapshot, leaving the prior turns for composition.
func historyBefore(snapshot []conversation.Message, userMessageID string) []conversation.Message {
	for i := range snapshot {
		if snapshot[i].ID == userMessageID {
			return snapshot[:i]
		}
	}
	return snapshot
}
