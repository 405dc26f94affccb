package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn entry missing: %q", out)
	}
}

func TestSetupLoggerUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("chatty", &buf)
	logger.Info("still logged")

	out := buf.String()
	if !strings.Contains(out, "Unknown log level") || !strings.Contains(out, "still logged") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestLoadEnvFileAndConfig(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(env, []byte("PORT=9191\nDISPLAY_TIMEZONE=UTC\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set.
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	t.Setenv("DISPLAY_TIMEZONE", "")
	os.Unsetenv("DISPLAY_TIMEZONE")
	t.Setenv("DATA_BACKEND", "memory")

	LoadEnvFile(env)
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig() error = %v", err)
	}
	if cfg.Port != "9191" || cfg.DisplayTimezone != "UTC" {
		t.Errorf("config not loaded from .env: %+v", cfg)
	}
}

func TestLoadAndValidateConfigRejectsBadBackend(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sheets")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Error("LoadAndValidateConfig() error = nil, want error")
	}
}
