package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/go-go-golems/marionette/pkg/orchestrator"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func loadFileUpload(path string) (*orchestrator.FileUpload, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read attachment %s", path)
	}
	return &orchestrator.FileUpload{
		Name:      filepath.Base(path),
		Data:      data,
		MediaType: conversation.MediaTypeForFile(path),
	}, nil
}

func newSendCommand() *cobra.Command {
	var (
		owner          string
		conversationID string
		providerRef    string
		model          string
		attach         string
	)

	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send one message and stream the reply",
		Args:  cobra.MinimumNArgs(1),
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
			file, err := loadFileUpload(attach)
			if err != nil {
				return err
			}

			return a.withEventPrinter(ctx, "", func(ctx context.Context) error {
				result, err := a.orch.Send(ctx, orchestrator.SendInput{
					Owner:          owner,
					ConversationID: conversationID,
					Text:           strings.Join(args, " "),
					File:           file,
					Provider:       provider,
				})
				if err != nil {
					return err
				}
				if result.Err != nil {
					return result.Err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "conversation: %s\n", result.ConversationID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "default", "Conversation owner")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation id (created when empty)")
	cmd.Flags().StringVar(&providerRef, "provider", "", "Stored provider config id or name")
	cmd.Flags().StringVar(&model, "model", "", "Model id, e.g. gemini-2.0-flash")
	cmd.Flags().StringVar(&attach, "attach", "", "Path to a file to attach")

	return cmd
}
