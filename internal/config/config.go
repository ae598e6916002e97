// Package config loads the server configuration from an HCL file, with
// secrets and log level overridable from the environment or a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
	"github.com/lox/rook/internal/deck"
	"github.com/lox/rook/internal/game"
)

// Environment variables that override the file
const (
	EnvRedisURL    = "ROOK_REDIS_URL"
	EnvPostgresDSN = "ROOK_POSTGRES_DSN"
	EnvLogLevel    = "ROOK_LOG_LEVEL"
)

// Config represents the complete server configuration
type Config struct {
	Server   ServerSettings
	Game     GameSettings
	EventLog EventLogSettings
}

// ServerSettings contains listener and logging configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	// StateFile, if set, receives the final table state on shutdown
	StateFile string `hcl:"state_file,optional"`
}

// GameSettings contains the table roster, rules and pacing
type GameSettings struct {
	Players       []string `hcl:"players,optional"`
	WinningScore  int      `hcl:"winning_score,optional"`
	DealerBid     int      `hcl:"dealer_bid,optional"`
	MaxBid        int      `hcl:"max_bid,optional"`
	RevealDelay   string   `hcl:"reveal_delay,optional"`
	SettleDelay   string   `hcl:"settle_delay,optional"`
	GameOverDelay string   `hcl:"game_over_delay,optional"`
	Seed          int64    `hcl:"seed,optional"`
}

// EventLogSettings selects where game events are written. The file sink is
// always on; empty Redis and Postgres addresses disable those sinks.
type EventLogSettings struct {
	File         string `hcl:"file,optional"`
	RedisURL     string `hcl:"redis_url,optional"`
	RedisChannel string `hcl:"redis_channel,optional"`
	PostgresDSN  string `hcl:"postgres_dsn,optional"`
	Buffer       int    `hcl:"buffer,optional"`
}

// file mirrors Config with optional blocks
type file struct {
	Server   *ServerSettings   `hcl:"server,block"`
	Game     *GameSettings     `hcl:"game,block"`
	EventLog *EventLogSettings `hcl:"event_log,block"`
}

// Default returns the default configuration
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw file
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := &Config{}
	if raw.Server != nil {
		cfg.Server = *raw.Server
	}
	if raw.Game != nil {
		cfg.Game = *raw.Game
	}
	if raw.EventLog != nil {
		cfg.EventLog = *raw.EventLog
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	defaults := game.DefaultConfig()
	if len(c.Game.Players) == 0 {
		for _, p := range defaults.Players {
			c.Game.Players = append(c.Game.Players, string(p))
		}
	}
	if c.Game.WinningScore == 0 {
		c.Game.WinningScore = defaults.WinningScore
	}
	if c.Game.DealerBid == 0 {
		c.Game.DealerBid = defaults.DealerBid
	}
	if c.Game.MaxBid == 0 {
		c.Game.MaxBid = defaults.MaxBid
	}
	if c.Game.RevealDelay == "" {
		c.Game.RevealDelay = defaults.RevealDelay.String()
	}
	if c.Game.SettleDelay == "" {
		c.Game.SettleDelay = defaults.SettleDelay.String()
	}
	if c.Game.GameOverDelay == "" {
		c.Game.GameOverDelay = defaults.GameOverDelay.String()
	}

	if c.EventLog.File == "" {
		c.EventLog.File = "game.log"
	}
	if c.EventLog.RedisChannel == "" {
		c.EventLog.RedisChannel = "rook:events"
	}
	if c.EventLog.Buffer == 0 {
		c.EventLog.Buffer = 256
	}
}

// ApplyEnv loads envFile, if it exists, into the environment and then
// overrides the Redis URL, Postgres DSN and log level from ROOK_* variables.
// Variables already set in the environment win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.EventLog.RedisURL = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.EventLog.PostgresDSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Server.LogLevel = v
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}

	if len(c.Game.Players) != 4 {
		return fmt.Errorf("exactly 4 players must be configured, got %d", len(c.Game.Players))
	}
	seen := make(map[string]bool, len(c.Game.Players))
	for _, p := range c.Game.Players {
		if p == "" {
			return errors.New("player names must not be empty")
		}
		if seen[p] {
			return fmt.Errorf("duplicate player %q", p)
		}
		seen[p] = true
	}

	if c.Game.WinningScore <= 0 {
		return errors.New("winning score must be positive")
	}
	if c.Game.MaxBid <= 0 || c.Game.MaxBid > deck.TotalPoints {
		return fmt.Errorf("max bid must be between 1 and %d", deck.TotalPoints)
	}
	if c.Game.DealerBid <= 0 || c.Game.DealerBid > c.Game.MaxBid {
		return fmt.Errorf("dealer bid must be between 1 and the max bid (%d)", c.Game.MaxBid)
	}
	for name, v := range map[string]string{
		"reveal_delay":    c.Game.RevealDelay,
		"settle_delay":    c.Game.SettleDelay,
		"game_over_delay": c.Game.GameOverDelay,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.EventLog.Buffer < 0 {
		return errors.New("event log buffer must not be negative")
	}
	return nil
}

// ServerAddress returns the listen address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Level returns the configured log level, defaulting to info
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.Server.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// GameConfig converts the game block to engine rules. Call Validate first.
func (c *Config) GameConfig() (game.Config, error) {
	reveal, err := time.ParseDuration(c.Game.RevealDelay)
	if err != nil {
		return game.Config{}, fmt.Errorf("invalid reveal_delay: %w", err)
	}
	settle, err := time.ParseDuration(c.Game.SettleDelay)
	if err != nil {
		return game.Config{}, fmt.Errorf("invalid settle_delay: %w", err)
	}
	over, err := time.ParseDuration(c.Game.GameOverDelay)
	if err != nil {
		return game.Config{}, fmt.Errorf("invalid game_over_delay: %w", err)
	}

	players := make([]game.Player, len(c.Game.Players))
	for i, p := range c.Game.Players {
		players[i] = game.Player(p)
	}
	return game.Config{
		Players:       players,
		WinningScore:  c.Game.WinningScore,
		DealerBid:     c.Game.DealerBid,
		MaxBid:        c.Game.MaxBid,
		RevealDelay:   reveal,
		SettleDelay:   settle,
		GameOverDelay: over,
	}, nil
}
