package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/go-go-golems/marionette/pkg/engine"
	"github.com/go-go-golems/marionette/pkg/orchestrator"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func extensionForMediaType(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func newImageCommand() *cobra.Command {
	var (
		owner          string
		conversationID string
		providerRef    string
		model          string
		out            string
	)

	cmd := &cobra.Command{
		Use:   "image [prompt...]",
		Short: "Generate a single image from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if model == "" && providerRef == "" {
				model = engine.SuggestedImageModel
			}
			provider, err := a.resolveProvider(ctx, owner, providerRef, model, conversation.CapabilityImage)
			if err != nil {
				return err
			}
			provider.Capability = conversation.CapabilityImage

			result, err := a.orch.Send(ctx, orchestrator.SendInput{
				Owner:          owner,
				ConversationID: conversationID,
				Text:           strings.Join(args, " "),
				Provider:       provider,
			})
			if err != nil {
				return err
			}
			if result.Err != nil {
				return result.Err
			}

			img := result.AssistantMessage.Image
			if img == nil {
				return errors.New("no image in assistant message")
			}
			if out == "" {
				out = "image-" + result.AssistantMessage.ID + extensionForMediaType(img.MediaType)
			}
			if err := os.WriteFile(out, img.Data, 0o644); err != nil {
				return errors.Wrapf(err, "could not write %s", out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes), conversation: %s\n",
				out, img.MediaType, len(img.Data), result.ConversationID)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "default", "Conversation owner")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation id (created when empty)")
	cmd.Flags().StringVar(&providerRef, "provider", "", "Stored provider config id or name")
	cmd.Flags().StringVar(&model, "model", "", "Image model id (defaults to "+engine.SuggestedImageModel+")")
	cmd.Flags().StringVar(&out, "out", "", "Output file path")

	return cmd
}
