package orchestrator

import (
	"sync"

	"github.com/go-go-golems/marionette/pkg/conversation"
)

// Transcript is the UI-visible message list for one conversation. All
// mutation happens by full-list transformation; observers only ever see
// complete snapshots, never partial in-place edits.
type Transcript struct {
	mu   sync.RWMutex
	msgs []conversation.Message
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Snapshot() []conversation.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ret := make([]conversation.Message, len(t.msgs))
	copy(ret, t.msgs)
	return ret
}

// Replace swaps in the canonical message list wholesale.
func (t *Transcript) Replace(msgs []conversation.Message) {
	next := make([]conversation.Message, len(msgs))
	copy(next, msgs)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = next
}

func (t *Transcript) Append(msg conversation.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := make([]conversation.Message, len(t.msgs), len(t.msgs)+1)
	copy(next, t.msgs)
	t.msgs = append(next, msg)
}

// Update rebuilds the list with fn applied to the message with the given
// id. A missing id is a no-op.
func (t *Transcript) Update(id string, fn func(*conversation.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := make([]conversation.Message, len(t.msgs))
	copy(next, t.msgs)
	for i := range next {
		if next[i].ID == id {
			fn(&next[i])
			break
		}
	}
	t.msgs = next
}
