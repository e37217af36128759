package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nfeflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
store:
  path: /var/lib/nfeflow/orders.db
import:
  max_file_bytes: 1048576
  force_list:
    - det
    - dup
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "/var/lib/nfeflow/orders.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if cfg.Import.MaxFileBytes != 1048576 {
		t.Errorf("max file bytes = %d", cfg.Import.MaxFileBytes)
	}
	if len(cfg.Import.ForceList) != 2 || cfg.Import.ForceList[0] != "det" {
		t.Errorf("force list = %v", cfg.Import.ForceList)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `store: {path: local.db}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "local.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if cfg.Import.MaxFileBytes != DefaultMaxFileBytes {
		t.Errorf("max file bytes = %d, want default", cfg.Import.MaxFileBytes)
	}
	if cfg.Import.ForceList != nil {
		t.Errorf("force list = %v, want nil for the NFe default", cfg.Import.ForceList)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}

	bad := writeConfig(t, "store: [not: a: mapping")
	if _, err := Load(bad); err == nil {
		t.Error("malformed YAML should fail")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Store.Path == "" {
		t.Error("default store path should be set")
	}
	if cfg.Import.MaxFileBytes != DefaultMaxFileBytes {
		t.Errorf("default max file bytes = %d", cfg.Import.MaxFileBytes)
	}
}
