package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Game.FallbackScene != "login" {
		t.Errorf("FallbackScene = %q, want login", cfg.Game.FallbackScene)
	}
	if cfg.Game.TickRate != 20*time.Millisecond {
		t.Errorf("TickRate = %s, want 20ms", cfg.Game.TickRate)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.toml")
	data := `
[server]
url = "ws://game.example:9000/ws"
user = "ann"

[game]
fallback_scene = "menu"
tick_rate = "40ms"

[network]
send_rate = 0.0

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.URL != "ws://game.example:9000/ws" || cfg.Server.User != "ann" {
		t.Errorf("Server = %+v, want overridden url and user", cfg.Server)
	}
	if cfg.Server.Room != "Lobby" {
		t.Errorf("Room = %q, want default Lobby", cfg.Server.Room)
	}
	if cfg.Game.FallbackScene != "menu" || cfg.Game.TickRate != 40*time.Millisecond {
		t.Errorf("Game = %+v, want menu/40ms", cfg.Game)
	}
	if cfg.Network.SendRate != 0 {
		t.Errorf("SendRate = %v, want 0", cfg.Network.SendRate)
	}
	if cfg.Network.PongWait != 60*time.Second {
		t.Errorf("PongWait = %s, want default 60s", cfg.Network.PongWait)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad toml", "[game\n"},
		{"zero tick rate", "[game]\ntick_rate = \"0s\"\n"},
		{"empty fallback", "[game]\nfallback_scene = \"\"\n"},
		{"bad log format", "[logging]\nformat = \"xml\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "client.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load(): expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load() of missing file: expected error")
	}
}
