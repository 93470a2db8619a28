package gemini

import (
	"context"

	"github.com/go-go-golems/marionette/pkg/events"
	"github.com/go-go-golems/marionette/pkg/settings"
	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"
)

// makeClient builds a genai client from per-request credentials, falling
// back to the step settings. An empty API key is forwarded so that
// misconfiguration fails at the provider boundary, not locally.
func makeClient(ctx context.Context, s *settings.StepSettings, apiKey string, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		apiKey = s.APIKey(settings.ApiTypeGemini)
	}
	if baseURL == "" {
		baseURL = s.BaseURL(settings.ApiTypeGemini)
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
}

func generationConfig(s *settings.StepSettings) *genai.GenerateContentConfig {
	if s == nil || s.Chat == nil {
		return nil
	}
	chat := s.Chat
	if chat.Temperature == nil && chat.TopP == nil && chat.MaxResponseTokens == nil {
		return nil
	}
	cfg := &genai.GenerateContentConfig{}
	if chat.Temperature != nil {
		v := float32(*chat.Temperature)
		cfg.Temperature = &v
	}
	if chat.TopP != nil {
		v := float32(*chat.TopP)
		cfg.TopP = &v
	}
	if chat.MaxResponseTokens != nil && *chat.MaxResponseTokens > 0 {
		cfg.MaxOutputTokens = int32(*chat.MaxResponseTokens)
	}
	return cfg
}

func publishToSinks(sinks []events.EventSink, event events.Event) {
	for _, sink := range sinks {
		if err := sink.PublishEvent(event); err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("failed to publish event to sink")
		}
	}
}
