package compose

import (
	"context"

	"github.com/go-go-golems/marionette/pkg/attachments"
	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	genai "google.golang.org/genai"
)

// Request is a provider-shaped prompt: the role-tagged prior turns and the
// parts of the current turn.
type Request struct {
	History []*genai.Content
	Current []*genai.Part
}

// Composer converts message history plus the newest user turn into genai
// contents, resolving attachments through the encoder.
type Composer struct {
	encoder *attachments.Encoder
	// bound on concurrent historical attachment fetches
	prefetchLimit int
}

type ComposerOption func(*Composer)

func WithPrefetchLimit(n int) ComposerOption {
	return func(c *Composer) {
		c.prefetchLimit = n
	}
}

func NewComposer(encoder *attachments.Encoder, options ...ComposerOption) *Composer {
	ret := &Composer{
		encoder:       encoder,
		prefetchLimit: 4,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func RoleToGenAI(r conversation.Role) genai.Role {
	if r == conversation.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// Compose builds the provider request. history is ordered oldest to newest
// and must not include the current message; newAttachment is a just-added
// file that takes precedence over any attachment already recorded on
// current (so the same resource is never fetched twice).
//
// Attachment resolution failures never abort composition: a failing
// historical attachment is omitted, a failing current attachment degrades
// the turn to text only.
func (c *Composer) Compose(ctx context.Context, history []conversation.Message, current conversation.Message, newAttachment *conversation.Attachment) (*Request, error) {
	resolved := c.prefetchHistory(ctx, history)

	contents := make([]*genai.Content, 0, len(history))
	for i, msg := range history {
		parts := []*genai.Part{genai.NewPartFromText(msg.Text)}
		if msg.Image != nil {
			parts = append(parts, genai.NewPartFromBytes(msg.Image.Data, msg.Image.MediaType))
		}
		for _, enc := range resolved[i] {
			if enc == nil {
				continue
			}
			parts = append(parts, genai.NewPartFromBytes(enc.Data, enc.MimeType))
		}
		contents = append(contents, genai.NewContentFromParts(parts, RoleToGenAI(msg.Role)))
	}

	currentParts := []*genai.Part{genai.NewPartFromText(current.Text)}
	att := newAttachment
	if att == nil && len(current.Attachments) > 0 {
		att = &current.Attachments[0]
	}
	if att != nil {
		enc, err := c.encoder.ResolveAttachment(ctx, *att)
		if err != nil {
			log.Warn().Err(err).Str("attachment", att.Name).Msg("failed to resolve current attachment, sending text only")
		} else if enc != nil {
			currentParts = append(currentParts, genai.NewPartFromBytes(enc.Data, enc.MimeType))
		}
	}

	return &Request{History: contents, Current: currentParts}, nil
}

// prefetchHistory resolves all historical attachments with a bounded number
// of concurrent fetches, preserving per-message order. Failures are
// swallowed per attachment.
func (c *Composer) prefetchHistory(ctx context.Context, history []conversation.Message) [][]*attachments.Encoded {
	resolved := make([][]*attachments.Encoded, len(history))
	for i, msg := range history {
		resolved[i] = make([]*attachments.Encoded, len(msg.Attachments))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.prefetchLimit)
	for i, msg := range history {
		for j, att := range msg.Attachments {
			i, j, att := i, j, att
			g.Go(func() error {
				enc, err := c.encoder.ResolveAttachment(gctx, att)
				if err != nil {
					log.Warn().Err(err).Str("attachment", att.Name).Msg("skipping unresolvable historical attachment")
					return nil
				}
				resolved[i][j] = enc
				return nil
			})
		}
	}
	// workers never return errors; Wait only synchronizes
	_ = g.Wait()
	return resolved
}

// TurnView is a role-tagged flattening of one composed turn; test support
// for the compose/teardown round-trip property.
type TurnView struct {
	Role genai.Role
	Text string
}

// Teardown flattens a composed request back into role-tagged text turns,
// prior turns first, the current turn last (always user-facing role).
func Teardown(req *Request) []TurnView {
	ret := make([]TurnView, 0, len(req.History)+1)
	for _, content := range req.History {
		text := ""
		for _, p := range content.Parts {
			text += p.Text
		}
		ret = append(ret, TurnView{Role: genai.Role(content.Role), Text: text})
	}
	text := ""
	for _, p := range req.Current {
		text += p.Text
	}
	ret = append(ret, TurnView{Role: genai.RoleUser, Text: text})
	return ret
}
