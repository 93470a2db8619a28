package engine

import (
	"context"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/pkg/errors"
)

// ChatRequest carries everything one streamed generation needs: the turn
// material and the per-request provider selection from the active
// ProviderConfig. An empty APIKey is forwarded to the provider rather than
// rejected here, so misconfiguration surfaces through one error path.
type ChatRequest struct {
	Model   string
	APIKey  string
	BaseURL string

	History       []conversation.Message
	Current       conversation.Message
	NewAttachment *conversation.Attachment
}

type ImageRequest struct {
	Model   string
	APIKey  string
	BaseURL string

	Prompt string
}

// StreamCallbacks is the push-based surface of a streamed generation.
// OnChunk fires once per provider fragment in arrival order, carrying both
// the delta and the full accumulated text. Exactly one terminal callback
// (OnComplete xor OnError) fires per ChatStream invocation, never both,
// never neither, and nothing fires after it.
type StreamCallbacks struct {
	OnChunk    func(delta string, completion string)
	OnComplete func(text string)
	OnError    func(err error)
}

// Normalized returns a copy with nil callbacks replaced by no-ops so
// engines can invoke them unconditionally.
func (cb StreamCallbacks) Normalized() StreamCallbacks {
	ret := cb
	if ret.OnChunk == nil {
		ret.OnChunk = func(string, string) {}
	}
	if ret.OnComplete == nil {
		ret.OnComplete = func(string) {}
	}
	if ret.OnError == nil {
		ret.OnError = func(error) {}
	}
	return ret
}

// ChatEngine streams a text generation. The outcome is reported through the
// callbacks only; cancelling ctx aborts the transport and terminates with
// OnError(ctx.Err()).
type ChatEngine interface {
	ChatStream(ctx context.Context, req *ChatRequest, cb StreamCallbacks)
}

// ImageEngine produces a single self-describing image artifact.
type ImageEngine interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*conversation.ImageRef, error)
}

// Registry holds the adapters for each capability. It is built once at
// startup and passed by reference; there is no process-wide default.
type Registry struct {
	chat  ChatEngine
	image ImageEngine
}

type RegistryOption func(*Registry)

func WithChatEngine(e ChatEngine) RegistryOption {
	return func(r *Registry) {
		r.chat = e
	}
}

func WithImageEngine(e ImageEngine) RegistryOption {
	return func(r *Registry) {
		r.image = e
	}
}

func NewRegistry(options ...RegistryOption) *Registry {
	ret := &Registry{}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (r *Registry) Chat() (ChatEngine, error) {
	if r.chat == nil {
		return nil, errors.New("no chat engine registered")
	}
	return r.chat, nil
}

func (r *Registry) Image() (ImageEngine, error) {
	if r.image == nil {
		return nil, errors.New("no image engine registered")
	}
	return r.image, nil
}
