package main

import (
	"context"

	"github.com/go-go-golems/marionette/pkg/attachments"
	"github.com/go-go-golems/marionette/pkg/blob"
	"github.com/go-go-golems/marionette/pkg/compose"
	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/go-go-golems/marionette/pkg/engine"
	"github.com/go-go-golems/marionette/pkg/engine/gemini"
	"github.com/go-go-golems/marionette/pkg/events"
	"github.com/go-go-golems/marionette/pkg/orchestrator"
	"github.com/go-go-golems/marionette/pkg/settings"
	"github.com/go-go-golems/marionette/pkg/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const chatTopic = "chat"

// app wires the store, engines and orchestrator for one CLI invocation.
type app struct {
	cfg    *appConfig
	store  store.Store
	orch   *orchestrator.Orchestrator
	router *events.EventRouter

	closeStore func(ctx context.Context) error
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	if cfg.Store.MongoURI != "" {
		mongoStore, err := store.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, err
		}
		a.store = mongoStore
		a.closeStore = func(context.Context) error { return mongoStore.Close() }
	} else {
		log.Warn().Msg("no mongo uri configured, conversations will not survive this process")
		a.store = store.NewInMemoryStore()
	}

	router, err := events.NewEventRouter()
	if err != nil {
		return nil, err
	}
	a.router = router

	manager := events.NewPublisherManager()
	manager.RegisterPublisher(chatTopic, router.Publisher)
	sink := events.NewPublisherSink(manager)

	composer := compose.NewComposer(attachments.NewEncoder())
	chatEngine, err := gemini.NewChatEngine(cfg.Step, composer, engine.WithSink(sink))
	if err != nil {
		return nil, err
	}
	imageEngine, err := gemini.NewImageEngine(cfg.Step, engine.WithSink(sink))
	if err != nil {
		return nil, err
	}
	registry := engine.NewRegistry(
		engine.WithChatEngine(chatEngine),
		engine.WithImageEngine(imageEngine),
	)

	a.orch = orchestrator.NewOrchestrator(a.store, blob.NewFSUploader(cfg.Blob.Dir, cfg.Blob.BaseURL), registry)
	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if a.closeStore != nil {
		if err := a.closeStore(ctx); err != nil {
			log.Warn().Err(err).Msg("closing store failed")
		}
	}
}

// resolveProvider builds the active provider configuration: a stored config
// by id or name when --provider is given, otherwise one assembled from flags
// and the step settings.
func (a *app) resolveProvider(ctx context.Context, owner string, providerRef string, model string, capability conversation.Capability) (conversation.ProviderConfig, error) {
	if providerRef != "" {
		configs, err := a.store.ListProviderConfigs(ctx, owner)
		if err != nil {
			return conversation.ProviderConfig{}, err
		}
		for _, cfg := range configs {
			if cfg.ID == providerRef || cfg.Name == providerRef {
				if model != "" {
					cfg.Model = model
				}
				return cfg, nil
			}
		}
		return conversation.ProviderConfig{}, errors.Errorf("no provider config named %s", providerRef)
	}

	if model == "" {
		return conversation.ProviderConfig{}, errors.New("either --provider or --model is required")
	}
	return conversation.ProviderConfig{
		Name:       "gemini",
		Capability: capability,
		Model:      model,
		APIKey:     a.cfg.Step.APIKey(settings.ApiTypeGemini),
		BaseURL:    a.cfg.Step.BaseURL(settings.ApiTypeGemini),
	}, nil
}

// withEventPrinter runs fn with the event router live and a console printer
// attached, so streamed deltas render as they arrive.
func (a *app) withEventPrinter(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.router.AddHandler("console-printer", chatTopic, events.PrinterFunc(name, rootCmd.OutOrStdout()))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		return a.router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		select {
		case <-a.router.Running():
		case <-ctx.Done():
			return ctx.Err()
		}
		defer func() {
			if err := a.router.Close(); err != nil {
				log.Warn().Err(err).Msg("closing event router failed")
			}
		}()
		return fn(ctx)
	})

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
