package gemini

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/go-go-golems/marionette/pkg/compose"
	"github.com/go-go-golems/marionette/pkg/engine"
	"github.com/go-go-golems/marionette/pkg/events"
	"github.com/go-go-golems/marionette/pkg/settings"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"
)

// ChatEngine streams chat generations from the Gemini API.
type ChatEngine struct {
	settings *settings.StepSettings
	composer *compose.Composer
	config   *engine.Config
}

var _ engine.ChatEngine = (*ChatEngine)(nil)

func NewChatEngine(s *settings.StepSettings, composer *compose.Composer, options ...engine.Option) (*ChatEngine, error) {
	cfg := engine.NewConfig()
	if err := engine.ApplyOptions(cfg, options...); err != nil {
		return nil, err
	}
	return &ChatEngine{settings: s, composer: composer, config: cfg}, nil
}

// ChatStream composes the provider request, opens a server-streamed call
// and drives the callbacks. Exactly one terminal callback fires; a context
// cancellation aborts the transport and terminates with OnError(ctx.Err()).
func (e *ChatEngine) ChatStream(ctx context.Context, req *engine.ChatRequest, cb engine.StreamCallbacks) {
	cb = cb.Normalized()

	metadata := events.EventMetadata{
		ID:             uuid.New(),
		ConversationID: req.Current.ConversationID,
		Model:          req.Model,
	}
	publish := func(ev events.Event) {
		publishToSinks(e.config.EventSinks, ev)
	}

	if req.Model == "" {
		err := errors.New("no model specified")
		publish(events.NewErrorEvent(metadata, err))
		cb.OnError(err)
		return
	}

	composed, err := e.composer.Compose(ctx, req.History, req.Current, req.NewAttachment)
	if err != nil {
		publish(events.NewErrorEvent(metadata, err))
		cb.OnError(err)
		return
	}
	contents := composed.History
	contents = append(contents, genai.NewContentFromParts(composed.Current, genai.RoleUser))

	client, err := makeClient(ctx, e.settings, req.APIKey, req.BaseURL)
	if err != nil {
		err = errors.Wrap(err, "failed to create gemini client")
		publish(events.NewErrorEvent(metadata, err))
		cb.OnError(err)
		return
	}

	startTime := time.Now()
	publish(events.NewStartEvent(metadata))
	log.Debug().Int("num_turns", len(contents)).Str("model", req.Model).Msg("gemini chat stream started")

	stream := client.Models.GenerateContentStream(ctx, req.Model, contents, generationConfig(e.settings))
	consumeStream(stream, publish, metadata, startTime, cb)
}

// consumeStream drains one streamed generation and enforces the callback
// contract: one OnChunk per fragment in arrival order, then exactly one of
// OnComplete / OnError. Factored out of ChatStream so the contract is
// testable against synthetic sequences.
func consumeStream(
	stream iter.Seq2[*genai.GenerateContentResponse, error],
	publish func(events.Event),
	metadata events.EventMetadata,
	startTime time.Time,
	cb engine.StreamCallbacks,
) {
	cb = cb.Normalized()

	text := ""
	chunkCount := 0
	for chunk, err := range stream {
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			log.Error().Err(err).Int("chunks_received", chunkCount).Msg("gemini stream receive failed")
			d := time.Since(startTime).Milliseconds()
			metadata.DurationMs = &d
			publish(events.NewErrorEvent(metadata, err))
			cb.OnError(err)
			return
		}
		if chunk == nil {
			continue
		}
		delta := chunk.Text()
		if delta == "" {
			continue
		}
		chunkCount++
		text += delta
		publish(events.NewPartialCompletionEvent(metadata, delta, text))
		cb.OnChunk(delta, text)
	}

	d := time.Since(startTime).Milliseconds()
	metadata.DurationMs = &d
	publish(events.NewFinalEvent(metadata, text))
	log.Debug().Int("chunks_received", chunkCount).Int("final_text_len", len(text)).Msg("gemini stream completed")
	cb.OnComplete(text)
}
