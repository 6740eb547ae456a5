// Package config resolves game settings from flags, WHOSAIDIT_* environment
// variables, an optional .env file and an optional whosaidit.yaml, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tatianab/who-said-it/internal/content"
	"github.com/tatianab/who-said-it/internal/engine"
	"github.com/tatianab/who-said-it/internal/models"
)

// EnvPrefix prefixes every environment variable the game reads.
const EnvPrefix = "WHOSAIDIT"

// Config holds the application configuration.
type Config struct {
	SaveDir string `mapstructure:"save-dir" validate:"required"`
	Store   string `mapstructure:"store" validate:"oneof=file sqlite memory"`

	Content       []string `mapstructure:"content"`
	SkipBuiltin   bool     `mapstructure:"skip-builtin"`
	StrictContent bool     `mapstructure:"strict-content"`

	CardsPerRound    int    `mapstructure:"cards" validate:"gte=1,lte=200"`
	WinThreshold     int    `mapstructure:"win-threshold" validate:"gte=1,ltefield=CardsPerRound"`
	Difficulty       string `mapstructure:"difficulty" validate:"oneof=easy medium hard"`
	MemorizeSeconds  int    `mapstructure:"memorize-seconds" validate:"gte=1,lte=3600"`
	ChallengeSeconds int    `mapstructure:"challenge-seconds" validate:"gte=1,lte=3600"`
	Seed             uint64 `mapstructure:"seed"`

	LogLevel string `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	LogFile  string `mapstructure:"log-file"`

	Bind string `mapstructure:"bind" validate:"required"`
	Port int    `mapstructure:"port" validate:"gt=0,lt=65536"`
}

// Defaults returns the stock configuration.
func Defaults() Config {
	return Config{
		SaveDir:          ".saves",
		Store:            "file",
		CardsPerRound:    15,
		WinThreshold:     5,
		Difficulty:       string(models.Easy),
		MemorizeSeconds:  60,
		ChallengeSeconds: 60,
		LogLevel:         "info",
		Bind:             "127.0.0.1",
		Port:             8080,
	}
}

// RegisterFlags adds a flag for every setting to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.String("config", "", "path to a config file (default ./whosaidit.yaml)")
	fs.String("save-dir", d.SaveDir, "directory for saved stats (env: WHOSAIDIT_SAVE_DIR)")
	fs.String("store", d.Store, "stats backend: file, sqlite or memory (env: WHOSAIDIT_STORE)")
	fs.StringSlice("content", nil, "extra poet files or directories, JSON or YAML (env: WHOSAIDIT_CONTENT)")
	fs.Bool("skip-builtin", d.SkipBuiltin, "do not load the built-in poets (env: WHOSAIDIT_SKIP_BUILTIN)")
	fs.Bool("strict-content", d.StrictContent, "refuse to play a round with fewer poets than --cards (env: WHOSAIDIT_STRICT_CONTENT)")
	fs.Int("cards", d.CardsPerRound, "cards dealt per round (env: WHOSAIDIT_CARDS)")
	fs.Int("win-threshold", d.WinThreshold, "points needed to win a round (env: WHOSAIDIT_WIN_THRESHOLD)")
	fs.StringP("difficulty", "d", d.Difficulty, "default opponent difficulty (env: WHOSAIDIT_DIFFICULTY)")
	fs.Int("memorize-seconds", d.MemorizeSeconds, "length of the memorization phase (env: WHOSAIDIT_MEMORIZE_SECONDS)")
	fs.Int("challenge-seconds", d.ChallengeSeconds, "response window used for response times (env: WHOSAIDIT_CHALLENGE_SECONDS)")
	fs.Uint64("seed", d.Seed, "random seed, 0 for a random one (env: WHOSAIDIT_SEED)")
	fs.String("log-level", d.LogLevel, "debug, info, warn or error (env: WHOSAIDIT_LOG_LEVEL)")
	fs.String("log-file", d.LogFile, "log destination for the terminal UI (env: WHOSAIDIT_LOG_FILE)")
	fs.StringP("bind", "b", d.Bind, "address to bind to when serving (env: WHOSAIDIT_BIND)")
	fs.IntP("port", "p", d.Port, "port to listen on when serving (env: WHOSAIDIT_PORT)")
}

var validate = validator.New()

// LoadConfig resolves the configuration without command-line flags.
func LoadConfig() (*Config, error) {
	return Load(nil)
}

// Load resolves the configuration. fs may be nil; otherwise it must have
// been populated by RegisterFlags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := Defaults()
	for key, val := range map[string]any{
		"save-dir":          d.SaveDir,
		"store":             d.Store,
		"content":           []string{},
		"skip-builtin":      d.SkipBuiltin,
		"strict-content":    d.StrictContent,
		"cards":             d.CardsPerRound,
		"win-threshold":     d.WinThreshold,
		"difficulty":        d.Difficulty,
		"memorize-seconds":  d.MemorizeSeconds,
		"challenge-seconds": d.ChallengeSeconds,
		"seed":              d.Seed,
		"log-level":         d.LogLevel,
		"log-file":          d.LogFile,
		"bind":              d.Bind,
		"port":              d.Port,
	} {
		v.SetDefault(key, val)
	}

	configFile := ""
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
		configFile, _ = fs.GetString("config")
	}
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("whosaidit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && (path != "" || !errors.As(err, &notFound)) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultDifficulty is the level preselected in menus and used by the
// server when a request names none.
func (c *Config) DefaultDifficulty() models.Difficulty {
	d, err := models.ParseDifficulty(c.Difficulty)
	if err != nil {
		return models.Easy
	}
	return d
}

// Settings converts the configuration into round rules.
func (c *Config) Settings() engine.Settings {
	s := engine.DefaultSettings()
	s.CardsPerRound = c.CardsPerRound
	s.WinThreshold = c.WinThreshold
	s.MemorizeTicks = c.MemorizeSeconds
	s.ChallengeWindow = time.Duration(c.ChallengeSeconds) * time.Second
	s.StrictContent = c.StrictContent
	return s
}

// ContentOptions selects the poet sources to load.
func (c *Config) ContentOptions() content.Options {
	return content.Options{Paths: c.Content, SkipDefaults: c.SkipBuiltin}
}
