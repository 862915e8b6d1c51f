package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Game    GameConfig    `toml:"game"`
	Network NetworkConfig `toml:"network"`
	Chat    ChatConfig    `toml:"chat"`
	Players PlayersConfig `toml:"players"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	URL  string `toml:"url"`  // websocket endpoint, e.g. ws://localhost:9933/ws
	User string `toml:"user"` // login name
	Room string `toml:"room"` // room joined before the game scene starts
}

type GameConfig struct {
	FallbackScene   string        `toml:"fallback_scene"`    // scene loaded when the connection is missing or lost
	OtherCharPrefab string        `toml:"other_char_prefab"` // prefab instantiated for remote characters
	TickRate        time.Duration `toml:"tick_rate"`         // how often queued events are processed
}

type NetworkConfig struct {
	DialTimeout  time.Duration `toml:"dial_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	PongWait     time.Duration `toml:"pong_wait"`
	SendRate     float64       `toml:"send_rate"`     // outbound frames per second, 0 = unlimited
	SendBurst    int           `toml:"send_burst"`    // outbound burst allowance
	InQueueSize  int           `toml:"in_queue_size"` // inbound events held between ticks, 0 = unbounded
}

type ChatConfig struct {
	HistorySize int `toml:"history_size"`
}

type PlayersConfig struct {
	RosterSize int `toml:"roster_size"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the client cannot run with.
func (c *Config) Validate() error {
	if c.Game.TickRate <= 0 {
		return fmt.Errorf("game.tick_rate must be positive, got %s", c.Game.TickRate)
	}
	if c.Game.FallbackScene == "" {
		return fmt.Errorf("game.fallback_scene must not be empty")
	}
	if c.Network.SendRate < 0 {
		return fmt.Errorf("network.send_rate must not be negative, got %v", c.Network.SendRate)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			URL:  "ws://localhost:9933/ws",
			Room: "Lobby",
		},
		Game: GameConfig{
			FallbackScene:   "login",
			OtherCharPrefab: "Prefabs/OtherChar",
			TickRate:        20 * time.Millisecond, // 50 steps per second
		},
		Network: NetworkConfig{
			DialTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			PongWait:     60 * time.Second,
			SendRate:     30,
			SendBurst:    60,
			InQueueSize:  1024,
		},
		Chat: ChatConfig{
			HistorySize: 1000,
		},
		Players: PlayersConfig{
			RosterSize: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
