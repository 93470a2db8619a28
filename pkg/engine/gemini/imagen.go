package gemini

import (
	"context"
	"strings"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/go-go-golems/marionette/pkg/engine"
	"github.com/go-go-golems/marionette/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"
)

// imageModelMarker selects the dedicated image-generation endpoint. Models
// without the marker go through the general content endpoint, which
// overloads one response shape for both text and image replies and has to
// be disambiguated from the content alone.
const imageModelMarker = "imagen"

// ImageEngine produces single-shot image artifacts from the Gemini API.
type ImageEngine struct {
	settings *settings.StepSettings
	config   *engine.Config
}

var _ engine.ImageEngine = (*ImageEngine)(nil)

func NewImageEngine(s *settings.StepSettings, options ...engine.Option) (*ImageEngine, error) {
	cfg := engine.NewConfig()
	if err := engine.ApplyOptions(cfg, options...); err != nil {
		return nil, err
	}
	return &ImageEngine{settings: s, config: cfg}, nil
}

func isImagenModel(model string) bool {
	return strings.Contains(strings.ToLower(model), imageModelMarker)
}

func (e *ImageEngine) GenerateImage(ctx context.Context, req *engine.ImageRequest) (*conversation.ImageRef, error) {
	client, err := makeClient(ctx, e.settings, req.APIKey, req.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}

	if isImagenModel(req.Model) {
		return e.generateDedicated(ctx, client, req)
	}
	return e.generateFromContent(ctx, client, req)
}

func (e *ImageEngine) generateDedicated(ctx context.Context, client *genai.Client, req *engine.ImageRequest) (*conversation.ImageRef, error) {
	resp, err := client.Models.GenerateImages(ctx, req.Model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "image generation with %q failed", req.Model)
	}
	return resolveImagesResponse(req.Model, resp)
}

func resolveImagesResponse(model string, resp *genai.GenerateImagesResponse) (*conversation.ImageRef, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, &engine.NoImageDataError{Model: model}
	}
	img := resp.GeneratedImages[0].Image
	if img == nil || len(img.ImageBytes) == 0 {
		return nil, &engine.NoImageDataError{Model: model}
	}
	mediaType := img.MIMEType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return &conversation.ImageRef{MediaType: mediaType, Data: img.ImageBytes}, nil
}

func (e *ImageEngine) generateFromContent(ctx context.Context, client *genai.Client, req *engine.ImageRequest) (*conversation.ImageRef, error) {
	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "image generation with %q failed", req.Model)
	}
	log.Debug().Str("model", req.Model).Int("candidates", len(resp.Candidates)).Msg("resolving image from content response")
	return resolveContentResponse(req.Model, resp)
}

// resolveContentResponse disambiguates the overloaded content response:
// the first inline binary part wins; otherwise a text part is surfaced as a
// refusal or an unexpected-text failure; otherwise there is no image data.
func resolveContentResponse(model string, resp *genai.GenerateContentResponse) (*conversation.ImageRef, error) {
	text := ""
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					mediaType := part.InlineData.MIMEType
					if mediaType == "" {
						mediaType = "image/png"
					}
					return &conversation.ImageRef{MediaType: mediaType, Data: part.InlineData.Data}, nil
				}
				if text == "" && part.Text != "" {
					text = part.Text
				}
			}
		}
	}

	if text != "" {
		if looksLikeRefusal(text) {
			return nil, &engine.GenerationDeclinedError{Model: model, Text: text}
		}
		return nil, &engine.UnexpectedTextResponseError{Model: model, Text: text}
	}
	return nil, &engine.NoImageDataError{Model: model}
}

var refusalPhrases = []string{
	"cannot",
	"can't",
	"unable to",
	"not able to",
	"don't have the ability",
	"do not have the ability",
	"i'm sorry",
	"i am sorry",
}

func looksLikeRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
