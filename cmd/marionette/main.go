package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-go-golems/marionette/pkg/settings"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type appConfig struct {
	Store struct {
		MongoURI      string `yaml:"mongo_uri,omitempty"`
		MongoDatabase string `yaml:"mongo_database,omitempty"`
	} `yaml:"store,omitempty"`
	Blob struct {
		Dir     string `yaml:"dir,omitempty"`
		BaseURL string `yaml:"base_url,omitempty"`
	} `yaml:"blob,omitempty"`
	Step *settings.StepSettings `yaml:"step,omitempty"`
}

func defaultConfig() *appConfig {
	cfg := &appConfig{}
	cfg.Store.MongoDatabase = "marionette"
	cfg.Blob.Dir = "blobs"
	cfg.Blob.BaseURL = "http://localhost:8080/blobs"
	cfg.Step = settings.NewStepSettings()
	return cfg
}

func loadConfig(path string) (*appConfig, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "could not parse config file %s", path)
		}
	}
	if cfg.Step == nil {
		cfg.Step = settings.NewStepSettings()
	}
	if cfg.Step.API == nil {
		cfg.Step.API = settings.NewStepSettings().API
	}

	// environment wins over the config file
	if key := viper.GetString("gemini-api-key"); key != "" {
		cfg.Step.API.APIKeys[settings.ApiTypeGemini+"-api-key"] = key
	}
	if baseURL := viper.GetString("gemini-base-url"); baseURL != "" {
		cfg.Step.API.BaseUrls[settings.ApiTypeGemini+"-base-url"] = baseURL
	}
	if uri := viper.GetString("mongo-uri"); uri != "" {
		cfg.Store.MongoURI = uri
	}
	if db := viper.GetString("mongo-database"); db != "" {
		cfg.Store.MongoDatabase = db
	}

	return cfg, nil
}

func initLogging(level string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %s", level)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(parsed)
	return nil
}

var (
	logLevel   string
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "marionette",
	Short: "Conversation orchestration over Gemini chat and image models",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging(logLevel); err != nil {
			return err
		}
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return errors.Wrapf(err, "could not load env file %s", envFile)
			}
		} else {
			// best effort, a missing .env is not an error
			_ = godotenv.Load()
		}

		viper.SetEnvPrefix("MARIONETTE")
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()
		// GEMINI_API_KEY is the conventional name, accept it unprefixed too
		_ = viper.BindEnv("gemini-api-key", "MARIONETTE_GEMINI_API_KEY", "GEMINI_API_KEY")
		_ = viper.BindEnv("gemini-base-url", "MARIONETTE_GEMINI_BASE_URL", "GEMINI_BASE_URL")
		_ = viper.BindEnv("mongo-uri", "MARIONETTE_MONGO_URI", "MONGO_URI")
		_ = viper.BindEnv("mongo-database", "MARIONETTE_MONGO_DATABASE")

		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a dotenv file (defaults to ./.env if present)")

	rootCmd.AddCommand(newSendCommand())
	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newImageCommand())
	rootCmd.AddCommand(newConversationsCommand())
	rootCmd.AddCommand(newProvidersCommand())

	// Ctrl-C cancels the context, which aborts in-flight generations
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
