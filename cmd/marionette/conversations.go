package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/spf13/cobra"
)

func newConversationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Inspect and manage stored conversations",
	}
	cmd.AddCommand(newConversationsListCommand())
	cmd.AddCommand(newConversationsShowCommand())
	cmd.AddCommand(newConversationsRenameCommand())
	cmd.AddCommand(newConversationsDeleteCommand())
	return cmd
}

func newConversationsListCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			convs, err := a.store.ListConversations(ctx, owner)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
			for _, c := range convs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Title, c.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "default", "Conversation owner")
	return cmd
}

func newConversationsShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			msgs, err := a.store.ListMessages(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, msg := range msgs {
				fmt.Fprintf(out, "[%s] %s\n", msg.Role, formatMessageBody(msg))
			}
			return nil
		},
	}
	return cmd
}

func formatMessageBody(msg conversation.Message) string {
	parts := []string{}
	if msg.Text != "" {
		parts = append(parts, msg.Text)
	}
	if msg.Image != nil {
		parts = append(parts, fmt.Sprintf("<image %s, %d bytes>", msg.Image.MediaType, len(msg.Image.Data)))
	}
	for _, att := range msg.Attachments {
		if att.Inline() {
			parts = append(parts, fmt.Sprintf("<attachment %s, inline>", att.Name))
		} else {
			parts = append(parts, fmt.Sprintf("<attachment %s, %s>", att.Name, att.URL))
		}
	}
	return strings.Join(parts, " ")
}

func newConversationsRenameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <conversation-id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			return a.store.RenameConversation(ctx, args[0], args[1])
		},
	}
	return cmd
}

func newConversationsDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation and all of its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			return a.store.DeleteConversation(ctx, args[0])
		},
	}
	return cmd
}
