package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/parsely/flipcards/internal/db"
	"github.com/parsely/flipcards/internal/speech"
)

const envPrefix = "FLIPCARDS"

type Config struct {
	Env     string        `mapstructure:"env" validate:"oneof=development production"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	AI      AIConfig      `mapstructure:"ai"`
}

type DBConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type StorageConfig struct {
	Key string `mapstructure:"key" validate:"required"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type SpeechConfig struct {
	Engine      string `mapstructure:"engine" validate:"oneof=espeak openai none"`
	Voice       string `mapstructure:"voice" validate:"required"`
	OpenAIKey   string `mapstructure:"openai_key"`
	OpenAIModel string `mapstructure:"openai_model"`
	OpenAIVoice string `mapstructure:"openai_voice"`
}

type AIConfig struct {
	AnthropicKey string `mapstructure:"anthropic_key"`
}

// Options says where to look for configuration besides the environment
type Options struct {
	ConfigFile string // explicit config file; empty searches $HOME/.flipcards.yaml
	EnvFile    string // dotenv file; empty means .env in the working directory
}

var validate = validator.New()

// StateDir is where the database and TUI log live by default
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "flipcards")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "state", "flipcards")
}

// Load reads configuration from flags bound on v, the environment, a dotenv file and
// the config file, in that order of precedence.
func Load(v *viper.Viper, opts Options) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v.SetDefault("env", "production")
	v.SetDefault("db.path", filepath.Join(StateDir(), "flipcards.db"))
	v.SetDefault("storage.key", db.StorageKey)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.file", "")
	v.SetDefault("speech.engine", speech.EngineESpeak)
	v.SetDefault("speech.voice", "en-us")
	v.SetDefault("speech.openai_model", "tts-1")
	v.SetDefault("speech.openai_voice", "alloy")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"server.port":       {envPrefix + "_SERVER_PORT", "PORT"},
		"speech.openai_key": {envPrefix + "_SPEECH_OPENAI_KEY", "OPENAI_API_KEY"},
		"ai.anthropic_key":  {envPrefix + "_AI_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".flipcards")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.DB.Path = expandHome(cfg.DB.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// SpeechSettings converts the speech section for speech.New
func (c *Config) SpeechSettings() speech.Config {
	return speech.Config{
		Engine:      c.Speech.Engine,
		Voice:       c.Speech.Voice,
		OpenAIKey:   c.Speech.OpenAIKey,
		OpenAIModel: c.Speech.OpenAIModel,
		OpenAIVoice: c.Speech.OpenAIVoice,
	}
}

// TUILogFile is the log destination for the terminal UI, which cannot log to stderr
func (c *Config) TUILogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(StateDir(), "flipcards.log")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
