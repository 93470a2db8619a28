package gemini

import (
	"testing"

	"github.com/go-go-golems/marionette/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

func TestIsImagenModel(t *testing.T) {
	assert.True(t, isImagenModel("imagen-3.0-generate-002"))
	assert.True(t, isImagenModel("Imagen-4"))
	assert.False(t, isImagenModel("gemini-2.0-flash"))
	assert.False(t, isImagenModel(""))
}

func contentResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

func TestResolveContentResponseImagePartWins(t *testing.T) {
	// determinism: text present too, the inline image always wins
	resp := contentResponse(
		&genai.Part{Text: "here is your image"},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
	)

	img, err := resolveContentResponse("gemini-2.0-flash", resp)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
}

func TestResolveContentResponseDeclined(t *testing.T) {
	// Scenario: text-only refusal surfaces as GenerationDeclined naming the model
	resp := contentResponse(&genai.Part{Text: "I cannot generate images"})

	_, err := resolveContentResponse("gemini-2.0-flash", resp)
	require.Error(t, err)
	assert.True(t, engine.IsGenerationDeclined(err))
	assert.Contains(t, err.Error(), "gemini-2.0-flash")
	assert.Contains(t, err.Error(), engine.SuggestedImageModel)
}

func TestResolveContentResponseUnexpectedText(t *testing.T) {
	resp := contentResponse(&genai.Part{Text: "Here is a detailed description of a sunset instead."})

	_, err := resolveContentResponse("gemini-2.0-flash", resp)
	require.Error(t, err)
	assert.True(t, engine.IsUnexpectedTextResponse(err))
	assert.Contains(t, err.Error(), "gemini-2.0-flash")
}

func TestResolveContentResponseNoImageData(t *testing.T) {
	_, err := resolveContentResponse("gemini-2.0-flash", contentResponse())
	require.Error(t, err)
	assert.True(t, engine.IsNoImageData(err))

	_, err = resolveContentResponse("gemini-2.0-flash", nil)
	require.Error(t, err)
	assert.True(t, engine.IsNoImageData(err))
}

func TestResolveContentResponseDefaultsMediaType(t *testing.T) {
	resp := contentResponse(&genai.Part{InlineData: &genai.Blob{Data: []byte{7}}})

	img, err := resolveContentResponse("gemini-2.0-flash", resp)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)
}

func TestResolveImagesResponseEmpty(t *testing.T) {
	// Scenario: imagen model but no image bytes comes back as a descriptive error
	_, err := resolveImagesResponse("imagen-3.0-generate-002", &genai.GenerateImagesResponse{})
	require.Error(t, err)
	assert.True(t, engine.IsNoImageData(err))
	assert.Contains(t, err.Error(), "imagen-3.0-generate-002")

	_, err = resolveImagesResponse("imagen-3.0-generate-002", &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{}}},
	})
	require.Error(t, err)
	assert.True(t, engine.IsNoImageData(err))
}

func TestResolveImagesResponseSuccess(t *testing.T) {
	resp := &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{
			{Image: &genai.Image{ImageBytes: []byte{9, 8, 7}, MIMEType: "image/webp"}},
		},
	}

	img, err := resolveImagesResponse("imagen-3.0-generate-002", resp)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", img.MediaType)
	assert.Equal(t, []byte{9, 8, 7}, img.Data)
}

func TestLooksLikeRefusal(t *testing.T) {
	assert.True(t, looksLikeRefusal("I cannot generate images"))
	assert.True(t, looksLikeRefusal("Sorry, I'm unable to do that"))
	assert.True(t, looksLikeRefusal("I'm sorry, but no"))
	assert.False(t, looksLikeRefusal("A majestic sunset over mountains"))
}
