package conversation

import (
	"strings"
	"time"
)

// Conversation groups an ordered list of messages under one owner.
// UpdatedAt is a last-activity marker bumped on every message append; it is
// used for ordering only, never for conflict detection.
type Conversation struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Capability string

const (
	CapabilityChat  Capability = "chat"
	CapabilityImage Capability = "image"
)

// ProviderConfig selects a model and capability for the orchestration
// engine. The capability tag is decided at configuration time and determines
// which adapter path a send takes; there is no per-request override.
// Credentials and endpoint are optional; a missing API key is forwarded to
// the provider rather than rejected locally.
type ProviderConfig struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Capability Capability `json:"capability"`
	Model      string     `json:"model"`
	APIKey     string     `json:"apiKey,omitempty"`
	BaseURL    string     `json:"baseUrl,omitempty"`
	Active     bool       `json:"active"`
}

const maxDerivedTitleLen = 48

// DeriveTitle builds a conversation title from the first words of the
// opening user message.
func DeriveTitle(text string) string {
	text = strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	if text == "" {
		return "New conversation"
	}
	if len(text) <= maxDerivedTitleLen {
		return text
	}
	cut := text[:maxDerivedTitleLen]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
