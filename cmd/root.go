package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/cv-advisor/internal/headhunter"
	"github.com/spigell/cv-advisor/internal/interview"
)

const (
	app = "cv-advisor"
)

type Config struct {
	CV          string            `mapstructure:"cv"`
	Jobs        string            `mapstructure:"jobs"`
	Threshold   int               `mapstructure:"threshold" validate:"gte=0,lte=100"`
	ExcludeFile string            `mapstructure:"exclude-file"`
	Exclude     *ExcludeConfig    `mapstructure:"exclude"`
	Interview   interview.Config  `mapstructure:"interview"`
	HeadHunter  *HeadHunterConfig `mapstructure:"headhunter"`
	AI          *AIConfig         `mapstructure:"ai" validate:"required"`
	Gaps        *GapsConfig       `mapstructure:"gaps"`
	Archive     *ArchiveConfig    `mapstructure:"archive"`
	Server      *ServerConfig     `mapstructure:"server"`
	Screen      *ScreenConfig     `mapstructure:"screen"`
}

type ExcludeConfig struct {
	Titles []string `mapstructure:"titles"`
}

type HeadHunterConfig struct {
	TokenFile string                   `mapstructure:"token-file"`
	Vacancies []string                 `mapstructure:"vacancies"`
	Search    *headhunter.SearchParams `mapstructure:"search"`
	Limit     int                      `mapstructure:"limit" validate:"gte=0"`
}

type AIConfig struct {
	Provider string            `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	Gemini   *GeminiConfig     `mapstructure:"gemini" validate:"required"`
	Personas map[string]string `mapstructure:"personas"`
}

type GeminiConfig struct {
	APIKeyFile   string        `mapstructure:"api-key-file"`
	APIKey       string        `mapstructure:"api-key"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int           `mapstructure:"max-log-length" validate:"gte=0"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type GapsConfig struct {
	Store string       `mapstructure:"store" validate:"omitempty,oneof=memory file redis"`
	Dir   string       `mapstructure:"dir"`
	Redis *RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	PasswordFile string `mapstructure:"password-file"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db" validate:"gte=0"`
}

type ArchiveConfig struct {
	DatabaseURLFile string `mapstructure:"database-url-file"`
	DatabaseURL     string `mapstructure:"database-url"`
}

type ServerConfig struct {
	Listen         string        `mapstructure:"listen"`
	SessionTimeout time.Duration `mapstructure:"session-timeout"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
}

type ScreenConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-advisor matches a CV against job descriptions and interviews you about the gaps",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"archive.database-url":   "CV_ADVISOR_DATABASE_URL",
		"gaps.redis.addr":        "REDIS_ADDR",
		"headhunter.token-file":  "HH_TOKEN_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-advisor.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command works without a config.
	if versionCmd.CalledAs() != "" {
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
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	config.applyDefaults()

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.AI == nil {
		c.AI = &AIConfig{}
	}
	if c.AI.Gemini == nil {
		c.AI.Gemini = &GeminiConfig{}
	}
	if c.Gaps == nil {
		c.Gaps = &GapsConfig{}
	}
	if c.Gaps.Redis == nil {
		c.Gaps.Redis = &RedisConfig{}
	}
	if c.Archive == nil {
		c.Archive = &ArchiveConfig{}
	}
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Screen == nil {
		c.Screen = &ScreenConfig{}
	}
	if c.Exclude == nil {
		c.Exclude = &ExcludeConfig{}
	}
	if c.HeadHunter == nil {
		c.HeadHunter = &HeadHunterConfig{}
	}
}

// bindFlags binds command flags to config keys. Commands sharing a key bind
// in PreRun so only the running command's flag is bound.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			log.Fatalf("binding flag %s: %v", flag, err)
		}
	}
}
