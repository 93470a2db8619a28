package attachments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Encoded is a normalized attachment payload ready for transmission to a
// model: a media type plus the raw body.
type Encoded struct {
	MimeType string
	Data     []byte
}

// FetchError signals that an attachment reference could not be retrieved.
// The caller decides fallback policy; the encoder never substitutes a
// payload silently.
type FetchError struct {
	Ref string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching attachment %q: %v", truncateRef(e.Ref), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func IsFetchFailed(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

func truncateRef(ref string) string {
	if len(ref) <= 64 {
		return ref
	}
	return ref[:64] + "..."
}

// Encoder normalizes attachment references into (mimeType, data) pairs.
// Inline data URIs decode synchronously without network I/O; remote URLs
// are fetched with the configured client.
type Encoder struct {
	client *http.Client
}

type EncoderOption func(*Encoder)

func WithHTTPClient(client *http.Client) EncoderOption {
	return func(e *Encoder) {
		e.client = client
	}
}

func NewEncoder(options ...EncoderOption) *Encoder {
	ret := &Encoder{
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Resolve turns a reference string into an Encoded payload.
// A data URI decodes locally, an http(s) URL is fetched, anything else is
// treated as no attachment: (nil, nil).
func (e *Encoder) Resolve(ctx context.Context, ref string) (*Encoded, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		mediaType, data, err := conversation.ParseDataURI(ref)
		if err != nil {
			return nil, &FetchError{Ref: ref, Err: err}
		}
		return &Encoded{MimeType: mediaType, Data: data}, nil

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return e.fetch(ctx, ref)

	default:
		return nil, nil
	}
}

// ResolveAttachment resolves an attachment record. Inline payloads
// short-circuit the fetch entirely.
func (e *Encoder) ResolveAttachment(ctx context.Context, att conversation.Attachment) (*Encoded, error) {
	if att.Inline() {
		mimeType := att.MediaType
		if mimeType == "" {
			mimeType = http.DetectContentType(att.Data)
		}
		return &Encoded{MimeType: mimeType, Data: att.Data}, nil
	}
	return e.Resolve(ctx, att.URL)
}

func (e *Encoder) fetch(ctx context.Context, url string) (*Encoded, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Ref: url, Err: err}
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &FetchError{Ref: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Ref: url, Err: errors.Errorf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Ref: url, Err: err}
	}

	mimeType := resp.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	log.Debug().Str("url", truncateRef(url)).Str("mime_type", mimeType).Int("bytes", len(data)).Msg("fetched attachment")
	return &Encoded{MimeType: mimeType, Data: data}, nil
}
