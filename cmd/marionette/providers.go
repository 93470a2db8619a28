package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/go-go-golems/marionette/pkg/settings"
	"github.com/spf13/cobra"
)

func newProvidersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Manage stored provider configurations",
	}
	cmd.AddCommand(newProvidersListCommand())
	cmd.AddCommand(newProvidersSetCommand())
	cmd.AddCommand(newProvidersDeleteCommand())
	return cmd
}

func newProvidersListCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List provider configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			configs, err := a.store.ListProviderConfigs(ctx, owner)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCAPABILITY\tMODEL\tACTIVE")
			for _, cfg := range configs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", cfg.ID, cfg.Name, cfg.Capability, cfg.Model, cfg.Active)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "default", "Config owner")
	return cmd
}

func newProvidersSetCommand() *cobra.Command {
	var (
		owner      string
		id         string
		capability string
		model      string
		apiKey     string
		baseURL    string
		active     bool
	)

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Create or update a provider configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if apiKey == "" {
				apiKey = a.cfg.Step.APIKey(settings.ApiTypeGemini)
			}
			if baseURL == "" {
				baseURL = a.cfg.Step.BaseURL(settings.ApiTypeGemini)
			}

			cfg := &conversation.ProviderConfig{
				ID:         id,
				Name:       args[0],
				Capability: conversation.Capability(capability),
				Model:      model,
				APIKey:     apiKey,
				BaseURL:    baseURL,
				Active:     active,
			}
			stored, err := a.store.UpsertProviderConfig(ctx, owner, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored provider config %s\n", stored.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "default", "Config owner")
	cmd.Flags().StringVar(&id, "id", "", "Config id (assigned when empty)")
	cmd.Flags().StringVar(&capability, "capability", string(conversation.CapabilityChat), "chat or image")
	cmd.Flags().StringVar(&model, "model", "", "Model id")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (defaults to the configured gemini key)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL override")
	cmd.Flags().BoolVar(&active, "active", true, "Mark this config active")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func newProvidersDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <config-id>",
		Short: "Delete a provider configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			return a.store.DeleteProviderConfig(ctx, args[0])
		},
	}
	return cmd
}
