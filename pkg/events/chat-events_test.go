package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONRoundTrip(t *testing.T) {
	md := EventMetadata{ID: uuid.New(), ConversationID: "conv-1", Model: "gemini-2.0-flash"}

	cases := []struct {
		name  string
		event Event
		check func(t *testing.T, e Event)
	}{
		{
			name:  "start",
			event: NewStartEvent(md),
			check: func(t *testing.T, e Event) {
				assert.Equal(t, EventTypeStart, e.Type())
			},
		},
		{
			name:  "partial",
			event: NewPartialCompletionEvent(md, " there", "Hi there"),
			check: func(t *testing.T, e Event) {
				p, ok := e.(*EventPartialCompletion)
				require.True(t, ok)
				assert.Equal(t, " there", p.Delta)
				assert.Equal(t, "Hi there", p.Completion)
			},
		},
		{
			name:  "final",
			event: NewFinalEvent(md, "Hi there!"),
			check: func(t *testing.T, e Event) {
				f, ok := e.(*EventFinal)
				require.True(t, ok)
				assert.Equal(t, "Hi there!", f.Text)
			},
		},
		{
			name:  "error",
			event: NewErrorEvent(md, errors.New("boom")),
			check: func(t *testing.T, e Event) {
				ee, ok := e.(*EventError)
				require.True(t, ok)
				assert.Equal(t, "boom", ee.ErrorString)
			},
		},
		{
			name:  "interrupt",
			event: NewInterruptEvent(md, "partial text"),
			check: func(t *testing.T, e Event) {
				i, ok := e.(*EventInterrupt)
				require.True(t, ok)
				assert.Equal(t, "partial text", i.Text)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.event)
			require.NoError(t, err)

			decoded, err := NewEventFromJSON(b)
			require.NoError(t, err)
			assert.Equal(t, tc.event.Type(), decoded.Type())
			assert.Equal(t, md.ID, decoded.Metadata().ID)
			assert.Equal(t, "conv-1", decoded.Metadata().ConversationID)
			tc.check(t, decoded)
		})
	}
}

func TestNewEventFromJSONUnknownType(t *testing.T) {
	_, err := NewEventFromJSON([]byte(`{"type":"nonsense"}`))
	require.Error(t, err)
}

func TestCollectorSinkKeepsOrder(t *testing.T) {
	sink := NewCollectorSink()
	md := EventMetadata{ID: uuid.New()}

	require.NoError(t, sink.PublishEvent(NewStartEvent(md)))
	require.NoError(t, sink.PublishEvent(NewPartialCompletionEvent(md, "Hi", "Hi")))
	require.NoError(t, sink.PublishEvent(NewFinalEvent(md, "Hi")))

	evts := sink.Events()
	require.Len(t, evts, 3)
	assert.Equal(t, EventTypeStart, evts[0].Type())
	assert.Equal(t, EventTypePartialCompletion, evts[1].Type())
	assert.Equal(t, EventTypeFinal, evts[2].Type())
}
