package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/go-go-golems/marionette/pkg/orchestrator"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newChatCommand() *cobra.Command {
	var (
		owner          string
		conversationID string
		providerRef    string
		model          string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session, one conversation across turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			provider, err := a.resolveProvider(ctx, owner, providerRef, model, conversation.CapabilityChat)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			return a.withEventPrinter(ctx, "assistant", func(ctx context.Context) error {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				fmt.Fprintln(out, "Type a message, empty line or Ctrl-D to quit.")
				for {
					fmt.Fprint(out, "> ")
					if !scanner.Scan() {
						break
					}
					text := strings.TrimSpace(scanner.Text())
					if text == "" {
						break
					}

					result, err := a.orch.Send(ctx, orchestrator.SendInput{
						Owner:          owner,
						ConversationID: conversationID,
						Text:           text,
						Provider:       provider,
					})
					if err != nil {
						return err
					}
					if result.Err != nil {
						log.Error().Err(result.Err).Msg("generation failed")
					}
					conversationID = result.ConversationID
				}
				return scanner.Err()
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "default", "Conversation owner")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Resume an existing conversation")
	cmd.Flags().StringVar(&providerRef, "provider", "", "Stored provider config id or name")
	cmd.Flags().StringVar(&model, "model", "", "Model id, e.g. gemini-2.0-flash")

	return cmd
}
