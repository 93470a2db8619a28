package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURIRoundTrip(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}
	uri := EncodeDataURI("image/png", data)

	mediaType, decoded, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, data, decoded)
}

func TestParseDataURIRejectsNonDataURI(t *testing.T) {
	_, _, err := ParseDataURI("https://example.com/image.png")
	require.Error(t, err)
}

func TestParseDataURIRejectsMissingPayload(t *testing.T) {
	_, _, err := ParseDataURI("data:image/png;base64")
	require.Error(t, err)
}

func TestParseDataURIPlainTextPayload(t *testing.T) {
	mediaType, data, err := ParseDataURI("data:,hello")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mediaType)
	assert.Equal(t, []byte("hello"), data)
}

func TestAttachmentRef(t *testing.T) {
	remote := Attachment{URL: "https://example.com/a.png"}
	assert.Equal(t, "https://example.com/a.png", remote.Ref())
	assert.False(t, remote.Inline())

	inline := Attachment{Data: []byte("abc"), MediaType: "image/png"}
	assert.True(t, inline.Inline())
	mediaType, data, err := ParseDataURI(inline.Ref())
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, []byte("abc"), data)

	assert.Equal(t, "", Attachment{}.Ref())
}

func TestNewMessageOptions(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := NewMessage("conv-1", RoleUser, "hello",
		WithID("msg-1"),
		WithCreatedAt(ts),
		WithAttachments(Attachment{Name: "a.png", URL: "https://example.com/a.png"}),
	)

	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, "conv-1", msg.ConversationID)
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, ts, msg.CreatedAt)
	require.Len(t, msg.Attachments, 1)
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "New conversation", DeriveTitle("   "))
	assert.Equal(t, "Hello there", DeriveTitle("Hello there"))

	long := DeriveTitle("this is a rather long opening message that should get cut down to a title")
	assert.LessOrEqual(t, len(long), maxDerivedTitleLen+len("…"))
	assert.Contains(t, long, "…")
}

func TestMediaTypeForFile(t *testing.T) {
	assert.Equal(t, "image/png", MediaTypeForFile("shot.PNG"))
	assert.Equal(t, "image/jpeg", MediaTypeForFile("photo.jpeg"))
	assert.Equal(t, "application/octet-stream", MediaTypeForFile("notes.txt"))
}
