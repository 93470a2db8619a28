package store

import (
	"context"
	"fmt"

	"github.com/go-go-golems/marionette/pkg/conversation"
)

// Store is the persisted-store collaborator. The orchestration engine only
// surfaces its failures, it never interprets them.
type Store interface {
	ListConversations(ctx context.Context, owner string) ([]conversation.Conversation, error)
	CreateConversation(ctx context.Context, owner string, title string) (*conversation.Conversation, error)
	RenameConversation(ctx context.Context, id string, title string) error
	// DeleteConversation cascades deletion of the conversation's messages.
	DeleteConversation(ctx context.Context, id string) error

	// ListMessages returns messages ordered by creation time ascending.
	ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error)
	// AppendMessage assigns an ID if missing and bumps the owning
	// conversation's UpdatedAt as a side effect.
	AppendMessage(ctx context.Context, msg *conversation.Message) (*conversation.Message, error)
	// UpdateMessage replaces an existing message in place. Used for the
	// persisted image placeholder.
	UpdateMessage(ctx context.Context, msg *conversation.Message) error
	DeleteMessage(ctx context.Context, id string) error

	ListProviderConfigs(ctx context.Context, owner string) ([]conversation.ProviderConfig, error)
	UpsertProviderConfig(ctx context.Context, owner string, cfg *conversation.ProviderConfig) (*conversation.ProviderConfig, error)
	DeleteProviderConfig(ctx context.Context, id string) error
}

// StoreError wraps a backend-specific diagnostic for a failed operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
