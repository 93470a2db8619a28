package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// SuggestedImageModel is named in declined/unexpected-text errors so the
// user gets a concrete alternative.
const SuggestedImageModel = "imagen-3.0-generate-002"

// GenerationDeclinedError: the model answered an image request with a
// capability refusal.
type GenerationDeclinedError struct {
	Model string
	Text  string
}

func (e *GenerationDeclinedError) Error() string {
	return fmt.Sprintf("model %q declined to generate an image (%q); try an image-capable model such as %q",
		e.Model, e.Text, SuggestedImageModel)
}

// UnexpectedTextResponseError: the model returned text where an image was
// expected, and the text does not read as a refusal.
type UnexpectedTextResponseError struct {
	Model string
	Text  string
}

func (e *UnexpectedTextResponseError) Error() string {
	return fmt.Sprintf("model %q returned text instead of an image (%q); try an image-capable model such as %q",
		e.Model, e.Text, SuggestedImageModel)
}

// NoImageDataError: the response carried neither an image part nor
// interpretable text.
type NoImageDataError struct {
	Model string
}

func (e *NoImageDataError) Error() string {
	return fmt.Sprintf("model %q returned no image data", e.Model)
}

func IsGenerationDeclined(err error) bool {
	var declined *GenerationDeclinedError
	return errors.As(err, &declined)
}

func IsUnexpectedTextResponse(err error) bool {
	var unexpected *UnexpectedTextResponseError
	return errors.As(err, &unexpected)
}

func IsNoImageData(err error) bool {
	var noImage *NoImageDataError
	return errors.As(err, &noImage)
}
