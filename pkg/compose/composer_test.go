package compose

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/marionette/pkg/attachments"
	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

func newTestComposer() *Composer {
	return NewComposer(attachments.NewEncoder())
}

func TestComposeEmptyHistorySingleTextPart(t *testing.T) {
	// Scenario: no history, plain "Hello", no attachment
	c := newTestComposer()

	req, err := c.Compose(context.Background(),
		nil,
		*conversation.NewMessage("conv-1", conversation.RoleUser, "Hello"),
		nil)
	require.NoError(t, err)

	assert.Empty(t, req.History)
	require.Len(t, req.Current, 1)
	assert.Equal(t, "Hello", req.Current[0].Text)
}

func TestComposeRoundTripPreservesOrderAndRoles(t *testing.T) {
	c := newTestComposer()

	history := []conversation.Message{
		*conversation.NewMessage("conv-1", conversation.RoleSystem, "be terse"),
		*conversation.NewMessage("conv-1", conversation.RoleUser, "hi"),
		*conversation.NewMessage("conv-1", conversation.RoleAssistant, "hello"),
		*conversation.NewMessage("conv-1", conversation.RoleUser, "what's up?"),
		*conversation.NewMessage("conv-1", conversation.RoleAssistant, "not much"),
	}
	current := *conversation.NewMessage("conv-1", conversation.RoleUser, "tell me a joke")

	req, err := c.Compose(context.Background(), history, current, nil)
	require.NoError(t, err)

	views := Teardown(req)
	require.Len(t, views, len(history)+1)

	expected := []TurnView{
		{Role: genai.RoleUser, Text: "be terse"},
		{Role: genai.RoleUser, Text: "hi"},
		{Role: genai.RoleModel, Text: "hello"},
		{Role: genai.RoleUser, Text: "what's up?"},
		{Role: genai.RoleModel, Text: "not much"},
		{Role: genai.RoleUser, Text: "tell me a joke"},
	}
	assert.Equal(t, expected, views)
}

func TestComposeInlinesAttachments(t *testing.T) {
	c := newTestComposer()

	current := *conversation.NewMessage("conv-1", conversation.RoleUser, "what is this?",
		conversation.WithAttachments(conversation.Attachment{
			Name:      "pic.png",
			Data:      []byte("png-bytes"),
			MediaType: "image/png",
		}))

	req, err := c.Compose(context.Background(), nil, current, nil)
	require.NoError(t, err)

	require.Len(t, req.Current, 2)
	assert.Equal(t, "what is this?", req.Current[0].Text)
	require.NotNil(t, req.Current[1].InlineData)
	assert.Equal(t, "image/png", req.Current[1].InlineData.MIMEType)
	assert.Equal(t, []byte("png-bytes"), req.Current[1].InlineData.Data)
}

func TestComposeNewAttachmentTakesPrecedence(t *testing.T) {
	c := newTestComposer()

	// the recorded attachment points somewhere unreachable; the new one is
	// inline; precedence means no fetch is attempted at all
	current := *conversation.NewMessage("conv-1", conversation.RoleUser, "look",
		conversation.WithAttachments(conversation.Attachment{
			Name: "stale.png",
			URL:  "http://127.0.0.1:1/stale.png",
		}))
	fresh := &conversation.Attachment{
		Name:      "fresh.png",
		Data:      []byte("fresh-bytes"),
		MediaType: "image/png",
	}

	req, err := c.Compose(context.Background(), nil, current, fresh)
	require.NoError(t, err)

	require.Len(t, req.Current, 2)
	require.NotNil(t, req.Current[1].InlineData)
	assert.Equal(t, []byte("fresh-bytes"), req.Current[1].InlineData.Data)
}

func TestComposeSkipsUnresolvableHistoricalAttachment(t *testing.T) {
	// Scenario: historical attachment 404s; its part is omitted, the send proceeds
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewComposer(attachments.NewEncoder(attachments.WithHTTPClient(srv.Client())))

	history := []conversation.Message{
		*conversation.NewMessage("conv-1", conversation.RoleUser, "see attached",
			conversation.WithAttachments(conversation.Attachment{
				Name: "gone.png",
				URL:  srv.URL + "/gone.png",
			})),
	}
	current := *conversation.NewMessage("conv-1", conversation.RoleUser, "and now?")

	req, err := c.Compose(context.Background(), history, current, nil)
	require.NoError(t, err)

	require.Len(t, req.History, 1)
	require.Len(t, req.History[0].Parts, 1)
	assert.Equal(t, "see attached", req.History[0].Parts[0].Text)
	require.Len(t, req.Current, 1)
}

func TestComposeCurrentAttachmentFailureDegradesToTextOnly(t *testing.T) {
	c := newTestComposer()

	fresh := &conversation.Attachment{
		Name: "unreachable.png",
		URL:  "http://127.0.0.1:1/unreachable.png",
	}
	req, err := c.Compose(context.Background(), nil,
		*conversation.NewMessage("conv-1", conversation.RoleUser, "still send me"),
		fresh)
	require.NoError(t, err)

	require.Len(t, req.Current, 1)
	assert.Equal(t, "still send me", req.Current[0].Text)
}

func TestComposeIncludesGeneratedImagesFromHistory(t *testing.T) {
	c := newTestComposer()

	history := []conversation.Message{
		*conversation.NewMessage("conv-1", conversation.RoleAssistant, "",
			conversation.WithImage(&conversation.ImageRef{MediaType: "image/png", Data: []byte{9, 9}})),
	}
	req, err := c.Compose(context.Background(), history,
		*conversation.NewMessage("conv-1", conversation.RoleUser, "describe it"),
		nil)
	require.NoError(t, err)

	require.Len(t, req.History, 1)
	require.Len(t, req.History[0].Parts, 2)
	require.NotNil(t, req.History[0].Parts[1].InlineData)
	assert.Equal(t, string(genai.RoleModel), req.History[0].Role)
}
