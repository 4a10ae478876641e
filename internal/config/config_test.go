package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigProvidesSaneValidatorAndStorageDefaults(t *testing.T) {
	d := DefaultConfig()
	if d.Validator.ActiveStrategy != "BLOCK" {
		t.Errorf("ActiveStrategy = %q, want BLOCK", d.Validator.ActiveStrategy)
	}
	if d.Storage.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", d.Storage.RetentionDays)
	}
	if d.Consumer.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", d.Consumer.Retry.MaxAttempts)
	}
	if d.AuditWriter.Sink != "local" {
		t.Errorf("AuditWriter.Sink = %q, want local", d.AuditWriter.Sink)
	}
}

func TestLoadFallsBackToDefaultsWhenNoConfigFileExists(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.Consumer.Topic != "sql-audit-events" {
		t.Errorf("Consumer.Topic = %q, want sql-audit-events", cfg.Consumer.Topic)
	}
}

func TestLoadReadsValuesFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "database:\n  host: db.internal\n  port: 6543\nvalidator:\n  activeStrategy: WARN\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 6543 {
		t.Errorf("Database = %+v, want host=db.internal port=6543", cfg.Database)
	}
	if cfg.Validator.ActiveStrategy != "WARN" {
		t.Errorf("ActiveStrategy = %q, want WARN", cfg.Validator.ActiveStrategy)
	}
	if cfg.Storage.RetentionDays != 90 {
		t.Errorf("expected unset fields to keep their defaults, RetentionDays = %d", cfg.Storage.RetentionDays)
	}
}
