package cmd

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spigell/gigboard/internal/backend"
	"github.com/spigell/gigboard/internal/presence"
	"github.com/spigell/gigboard/internal/recommend"
	"github.com/spigell/gigboard/internal/secrets"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "gigboard"
)

type Config struct {
	Backend   *BackendConfig   `mapstructure:"backend"`
	Recommend *RecommendConfig `mapstructure:"recommend"`
	Presence  *PresenceConfig  `mapstructure:"presence"`
}

type BackendConfig struct {
	URL       string `mapstructure:"url"`
	Key       string `mapstructure:"key"`
	KeyFile   string `mapstructure:"key-file"`
	UserAgent string `mapstructure:"user-agent"`
}

type RecommendConfig struct {
	UserID            string            `mapstructure:"user-id"`
	JobsFile          string            `mapstructure:"jobs-file"`
	ProfileFile       string            `mapstructure:"profile-file"`
	Limit             int               `mapstructure:"limit"`
	ExcludeFile       string            `mapstructure:"exclude-file"`
	ExcludeCategories []string          `mapstructure:"exclude-categories"`
	Schedule          string            `mapstructure:"schedule"`
	Weights           recommend.Weights `mapstructure:"weights"`
	AI                *AIConfig         `mapstructure:"ai"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey           string `mapstructure:"api-key"`
	APIKeyFile       string `mapstructure:"api-key-file"`
	Model            string `mapstructure:"model"`
	MaxRetries       int    `mapstructure:"max-retries"`
	MaxLogLength     int    `mapstructure:"max-log-length"`
	ExtraCriteria    string `mapstructure:"extra-criteria"`
	UserInstructions string `mapstructure:"user-instructions"`
}

type PresenceConfig struct {
	UserID         string          `mapstructure:"user-id"`
	Path           string          `mapstructure:"path"`
	Store          string          `mapstructure:"store"`
	Redis          *RedisConfig    `mapstructure:"redis"`
	Postgres       *PostgresConfig `mapstructure:"postgres"`
	ReportInterval time.Duration   `mapstructure:"report-interval"`

	presence.Config `mapstructure:",squash"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	URLFile string `mapstructure:"url-file"`
}

type PostgresConfig struct {
	URL     string `mapstructure:"url"`
	URLFile string `mapstructure:"url-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "gigboard ranks marketplace jobs for a worker and tracks who is online",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"backend.key-file":  "GIGBOARD_BACKEND_KEY_FILE",
		"recommend.user-id": "GIGBOARD_USER_ID",
		"presence.user-id":  "GIGBOARD_USER_ID",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is gigboard.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Only recommend and presence need a config. version works without one.
	if recommendCmd.CalledAs() == "" && presenceCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Backend == nil {
		config.Backend = &BackendConfig{}
	}
	if config.Recommend == nil {
		config.Recommend = &RecommendConfig{}
	}
	if config.Presence == nil {
		config.Presence = &PresenceConfig{}
	}

	return config, nil
}

// newBackend returns nil when no backend url is configured.
func newBackend(config *BackendConfig, logger *zap.Logger) (*backend.Client, error) {
	if config == nil || strings.TrimSpace(config.URL) == "" {
		return nil, nil
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "backend api key",
		Value: config.Key,
		File:  config.KeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set backend.key-file or GIGBOARD_BACKEND_KEY_FILE)", err)
	}

	client := backend.New(logger, config.URL, key)
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	return client, nil
}
