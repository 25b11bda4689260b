package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/portion-planner/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name      string
		conf      config.LoggingConfig
		override  string
		wantLevel zapcore.Level
		wantError bool
	}{
		{name: "defaults", wantLevel: zapcore.InfoLevel},
		{name: "config level", conf: config.LoggingConfig{Level: "warn"}, wantLevel: zapcore.WarnLevel},
		{name: "override wins", conf: config.LoggingConfig{Level: "error"}, override: "DEBUG", wantLevel: zapcore.DebugLevel},
		{name: "console format", conf: config.LoggingConfig{Format: "console"}, wantLevel: zapcore.InfoLevel},
		{name: "bad level", conf: config.LoggingConfig{Level: "loud"}, wantError: true},
		{name: "bad format", conf: config.LoggingConfig{Format: "xml"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.conf, tt.override)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("initializeLogger() error = %v", err)
			}
			if !logger.Core().Enabled(tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}
			if tt.wantLevel > zapcore.DebugLevel && logger.Core().Enabled(tt.wantLevel-1) {
				t.Errorf("expected level %v to be disabled", tt.wantLevel-1)
			}
		})
	}
}

func TestInitializeLoggerOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "planner.log")
	logger, err := initializeLogger(config.LoggingConfig{OutputFile: path}, "")
	if err != nil {
		t.Fatalf("initializeLogger() error = %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log output in the file")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PORTION_TEST_ENV_VALUE=42\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("PORTION_TEST_ENV_VALUE", "")
	_ = os.Unsetenv("PORTION_TEST_ENV_VALUE")

	if err := loadEnvFile(path, true); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}
	if got := os.Getenv("PORTION_TEST_ENV_VALUE"); got != "42" {
		t.Errorf("expected value from env file, got %q", got)
	}

	missing := filepath.Join(dir, "missing.env")
	if err := loadEnvFile(missing, false); err != nil {
		t.Errorf("expected a missing default file to be ignored, got %v", err)
	}
	if err := loadEnvFile(missing, true); err == nil {
		t.Error("expected an error for a missing explicit file")
	}
	if err := loadEnvFile("", true); err != nil {
		t.Errorf("expected an empty path to be ignored, got %v", err)
	}
}
