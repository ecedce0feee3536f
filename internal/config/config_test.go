package config

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue string
		expected     string
	}{
		{"env set", "TEST_ENV_VAR", "custom-value", "default", "custom-value"},
		{"env not set", "TEST_ENV_VAR_UNSET", "", "default", "default"},
		{"empty default", "TEST_ENV_VAR_EMPTY", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			got := getEnvOrDefault(tt.key, tt.defaultValue)
			if got != tt.expected {
				t.Errorf("getEnvOrDefault() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetEnvIntOrDefault(t *testing.T) {
	t.Setenv("TEST_INT_VALID", "250")
	t.Setenv("TEST_INT_INVALID", "not-a-number")

	if got := getEnvIntOrDefault("TEST_INT_VALID", 100); got != 250 {
		t.Errorf("valid int = %d, want 250", got)
	}
	if got := getEnvIntOrDefault("TEST_INT_INVALID", 100); got != 100 {
		t.Errorf("invalid int = %d, want default 100", got)
	}
	if got := getEnvIntOrDefault("TEST_INT_UNSET", 100); got != 100 {
		t.Errorf("unset int = %d, want default 100", got)
	}
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Setenv("TEST_DUR_VALID", "30s")
	t.Setenv("TEST_DUR_INVALID", "soon")

	if got := getEnvDurationOrDefault("TEST_DUR_VALID", time.Second); got != 30*time.Second {
		t.Errorf("valid duration = %v, want 30s", got)
	}
	if got := getEnvDurationOrDefault("TEST_DUR_INVALID", time.Second); got != time.Second {
		t.Errorf("invalid duration = %v, want default 1s", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DRIVEDEX_DATA_DIR", t.TempDir())

	c := Load()
	if c.LogLevel != "info" {
		t.Errorf("default log level = %q, want info", c.LogLevel)
	}
	if c.BatchSize != 100 {
		t.Errorf("default batch size = %d, want 100", c.BatchSize)
	}
	if c.FlushInterval != 5*time.Second {
		t.Errorf("default flush interval = %v, want 5s", c.FlushInterval)
	}
	if c.RemountAttempts != 5 {
		t.Errorf("default remount attempts = %d, want 5", c.RemountAttempts)
	}
	if c.ThumbMaxWidth != 320 {
		t.Errorf("default thumb width = %d, want 320", c.ThumbMaxWidth)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DRIVEDEX_DATA_DIR", t.TempDir())
	t.Setenv("DRIVEDEX_LOG_LEVEL", "chatty")
	t.Setenv("DRIVEDEX_BATCH_SIZE", "0")

	c := Load()
	if c.LogLevel != "info" {
		t.Errorf("invalid log level fell back to %q, want info", c.LogLevel)
	}
	if c.BatchSize != 1 {
		t.Errorf("batch size 0 clamped to %d, want 1", c.BatchSize)
	}
}
