package conversation

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Attachment is a binary reference carried by a user message. It is either
// remote (URL set) or inline (Data + MediaType set). Inline attachments are
// self-describing and never require network I/O to resolve.
type Attachment struct {
	Name      string `json:"name,omitempty"`
	URL       string `json:"url,omitempty"`
	Data      []byte `json:"data,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

func (a Attachment) Inline() bool {
	return len(a.Data) > 0
}

// Ref returns the attachment as a single reference string: the URL for
// remote attachments, a data URI for inline ones.
func (a Attachment) Ref() string {
	if a.URL != "" {
		return a.URL
	}
	if a.Inline() {
		return EncodeDataURI(a.MediaType, a.Data)
	}
	return ""
}

// ImageRef is a generated image held inline on an assistant message.
type ImageRef struct {
	MediaType string `json:"mediaType"`
	Data      []byte `json:"data"`
}

func (r *ImageRef) DataURI() string {
	return EncodeDataURI(r.MediaType, r.Data)
}

// EncodeDataURI renders a self-describing inline payload.
func EncodeDataURI(mediaType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURI decodes a data URI into its media type and payload body.
func ParseDataURI(s string) (string, []byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, errors.Errorf("not a data URI: %q", truncate(s, 32))
	}
	rest := strings.TrimPrefix(s, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, errors.New("malformed data URI: missing payload separator")
	}
	mediaType := meta
	isBase64 := false
	if strings.HasSuffix(meta, ";base64") {
		mediaType = strings.TrimSuffix(meta, ";base64")
		isBase64 = true
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	if !isBase64 {
		return mediaType, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Wrap(err, "malformed data URI payload")
	}
	return mediaType, data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Message is one persisted conversation record. For assistant turns exactly
// one of Text / Image is the primary payload; attachments only appear on
// user turns in the normal flow.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	Role           Role         `json:"role"`
	Text           string       `json:"text"`
	Image          *ImageRef    `json:"image,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

type MessageOption func(*Message)

func WithID(id string) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func WithCreatedAt(t time.Time) MessageOption {
	return func(m *Message) {
		m.CreatedAt = t
	}
}

func WithAttachments(attachments ...Attachment) MessageOption {
	return func(m *Message) {
		m.Attachments = attachments
	}
}

func WithImage(img *ImageRef) MessageOption {
	return func(m *Message) {
		m.Image = img
	}
}

func NewMessage(conversationID string, role Role, text string, options ...MessageOption) *Message {
	ret := &Message{
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// MediaTypeFromExtension maps common image file extensions to media types.
// Returns "" for unsupported formats.
func MediaTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return ""
	}
}

// MediaTypeForFile guesses a media type from a file name, falling back to
// application/octet-stream.
func MediaTypeForFile(name string) string {
	if mt := MediaTypeFromExtension(filepath.Ext(name)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
