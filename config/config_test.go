package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "garden.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial.BaudRate != BAUD_RATE_LEGACY {
		t.Errorf("expected baud %d, got %d", BAUD_RATE_LEGACY, cfg.Serial.BaudRate)
	}
	if cfg.Telemetry.IdleInterval != 100*time.Millisecond {
		t.Errorf("expected idle 100ms, got %s", cfg.Telemetry.IdleInterval)
	}
	if cfg.Thresholds.DryMax != 80 || cfg.Thresholds.NormalMax != 120 {
		t.Errorf("unexpected thresholds %+v", cfg.Thresholds)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
serial:
  driver: jacobsa
  baud_rate: 115200
  read_timeout: 500ms
telemetry:
  grammar: tagged
  idle_interval: 50ms
thresholds:
  dry_max: 60
  normal_max: 90
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial.Driver != DriverJacobsa {
		t.Errorf("expected driver jacobsa, got %q", cfg.Serial.Driver)
	}
	if cfg.Serial.BaudRate != BAUD_RATE_FAST {
		t.Errorf("expected baud %d, got %d", BAUD_RATE_FAST, cfg.Serial.BaudRate)
	}
	if cfg.Serial.ReadTimeout != 500*time.Millisecond {
		t.Errorf("expected read timeout 500ms, got %s", cfg.Serial.ReadTimeout)
	}
	if cfg.Telemetry.Grammar != GrammarTagged {
		t.Errorf("expected tagged grammar, got %q", cfg.Telemetry.Grammar)
	}
	if cfg.Telemetry.MaxLineLength != 256 {
		t.Errorf("expected default max line length to survive, got %d", cfg.Telemetry.MaxLineLength)
	}
	if cfg.Server.Addr != SERVER_ADDR {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"driver":     "serial:\n  driver: usb3000\n",
		"grammar":    "telemetry:\n  grammar: xml\n",
		"thresholds": "thresholds:\n  dry_max: 130\n  normal_max: 120\n",
		"baud":       "serial:\n  baud_rate: 0\n",
		"yaml":       "serial: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Errorf("expected an error for %s", name)
			}
		})
	}
}

func TestValidateMessageNamesField(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.IdleInterval = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "idle_interval") {
		t.Fatalf("expected idle_interval error, got %v", err)
	}
}
