package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// InMemoryStore is the non-durable Store used by tests and local runs
// without a configured backend.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation.Conversation
	messages      map[string]*conversation.Message
	providers     map[string]*conversation.ProviderConfig
	// owner index for provider configs
	providerOwner map[string]string
	// insertion order, used to break CreatedAt ties when sorting messages
	msgSeq map[string]int64
	seq    int64
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: map[string]*conversation.Conversation{},
		messages:      map[string]*conversation.Message{},
		providers:     map[string]*conversation.ProviderConfig{},
		providerOwner: map[string]string{},
		msgSeq:        map[string]int64{},
	}
}

func (s *InMemoryStore) ListConversations(_ context.Context, owner string) ([]conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ret []conversation.Conversation
	for _, c := range s.conversations {
		if c.Owner == owner {
			ret = append(ret, *c)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].UpdatedAt.After(ret[j].UpdatedAt)
	})
	return ret, nil
}

func (s *InMemoryStore) CreateConversation(_ context.Context, owner string, title string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c := &conversation.Conversation{
		ID:        uuid.NewString(),
		Owner:     owner,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[c.ID] = c
	ret := *c
	return &ret, nil
}

func (s *InMemoryStore) RenameConversation(_ context.Context, id string, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return wrapErr("rename conversation", errors.Errorf("conversation %s not found", id))
	}
	c.Title = title
	return nil
}

func (s *InMemoryStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return wrapErr("delete conversation", errors.Errorf("conversation %s not found", id))
	}
	delete(s.conversations, id)
	for msgID, msg := range s.messages {
		if msg.ConversationID == id {
			delete(s.messages, msgID)
		}
	}
	return nil
}

func (s *InMemoryStore) ListMessages(_ context.Context, conversationID string) ([]conversation.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type indexed struct {
		msg conversation.Message
		seq int64
	}
	var tmp []indexed
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			tmp = append(tmp, indexed{msg: *m, seq: s.msgSeq[m.ID]})
		}
	}
	sort.Slice(tmp, func(i, j int) bool {
		if tmp[i].msg.CreatedAt.Equal(tmp[j].msg.CreatedAt) {
			return tmp[i].seq < tmp[j].seq
		}
		return tmp[i].msg.CreatedAt.Before(tmp[j].msg.CreatedAt)
	})
	ret := make([]conversation.Message, 0, len(tmp))
	for _, e := range tmp {
		ret = append(ret, e.msg)
	}
	return ret, nil
}

func (s *InMemoryStore) AppendMessage(_ context.Context, msg *conversation.Message) (*conversation.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[msg.ConversationID]
	if !ok {
		return nil, wrapErr("append message", errors.Errorf("conversation %s not found", msg.ConversationID))
	}

	stored := *msg
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.seq++
	s.msgSeq[stored.ID] = s.seq
	s.messages[stored.ID] = &stored
	c.UpdatedAt = time.Now()

	ret := stored
	return &ret, nil
}

func (s *InMemoryStore) UpdateMessage(_ context.Context, msg *conversation.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.messages[msg.ID]
	if !ok {
		return wrapErr("update message", errors.Errorf("message %s not found", msg.ID))
	}
	updated := *msg
	updated.ConversationID = existing.ConversationID
	updated.CreatedAt = existing.CreatedAt
	s.messages[msg.ID] = &updated
	return nil
}

func (s *InMemoryStore) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return wrapErr("delete message", errors.Errorf("message %s not found", id))
	}
	delete(s.messages, id)
	return nil
}

func (s *InMemoryStore) ListProviderConfigs(_ context.Context, owner string) ([]conversation.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ret []conversation.ProviderConfig
	for id, cfg := range s.providers {
		if s.providerOwner[id] == owner {
			ret = append(ret, *cfg)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Name < ret[j].Name
	})
	return ret, nil
}

func (s *InMemoryStore) UpsertProviderConfig(_ context.Context, owner string, cfg *conversation.ProviderConfig) (*conversation.ProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *cfg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.providers[stored.ID] = &stored
	s.providerOwner[stored.ID] = owner

	ret := stored
	return &ret, nil
}

func (s *InMemoryStore) DeleteProviderConfig(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[id]; !ok {
		return wrapErr("delete provider config", errors.Errorf("provider config %s not found", id))
	}
	delete(s.providers, id)
	delete(s.providerOwner, id)
	return nil
}
