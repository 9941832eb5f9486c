package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/knowdhq/knowd/internal/core"
	"gopkg.in/yaml.v3"
)

// stubModule is a basic module for testing.
type stubModule struct {
	id string
}

func (m *stubModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID(m.id),
		New: func() core.Module { return &stubModule{id: m.id} },
	}
}

func registerStub(t *testing.T, id string) {
	t.Helper()
	core.RegisterModule(&stubModule{id: id})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Basic(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  memory.store: {}
  gateway.http:
    bind: "127.0.0.1:9321"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if cfg.Version != "1" {
		t.Errorf("Version = %q, want %q", cfg.Version, "1")
	}
	if len(cfg.Modules) != 2 {
		t.Errorf("len(Modules) = %d, want 2", len(cfg.Modules))
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("KNOWD_TEST_BIND", "0.0.0.0:7000")

	path := writeConfig(t, `
version: "1"
modules:
  gateway.http:
    bind: "${KNOWD_TEST_BIND}"
    auth: "${KNOWD_TEST_MISSING:-fallback}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}

	var section struct {
		Bind string `yaml:"bind"`
		Auth string `yaml:"auth"`
	}
	node := cfg.Modules["gateway.http"]
	if err := node.Decode(&section); err != nil {
		t.Fatalf("decoding module section: %v", err)
	}
	if section.Bind != "0.0.0.0:7000" {
		t.Errorf("bind = %q, want %q", section.Bind, "0.0.0.0:7000")
	}
	if section.Auth != "fallback" {
		t.Errorf("auth = %q, want %q", section.Auth, "fallback")
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  gateway.http:
    bind: "${KNOWD_TEST_DEFINITELY_UNSET}"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for unresolved variable")
	}
}

func TestValidate_Valid(t *testing.T) {
	id := t.Name() + ".mod"
	registerStub(t, id)
	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{id: {}},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingVersion(t *testing.T) {
	id := t.Name() + ".mod"
	registerStub(t, id)
	cfg := &Config{
		Modules: map[string]yaml.Node{id: {}},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing version")
	}
	if !strings.Contains(err.Error(), "version") {
		t.Errorf("error should mention version: %v", err)
	}
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	id := t.Name() + ".mod"
	registerStub(t, id)
	cfg := &Config{
		Version: "99",
		Modules: map[string]yaml.Node{id: {}},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("error should mention unsupported: %v", err)
	}
}

func TestValidate_EmptyModules(t *testing.T) {
	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for empty modules")
	}
	if !strings.Contains(err.Error(), "at least one") {
		t.Errorf("error should mention at least one module: %v", err)
	}
}

func TestValidate_UnknownModule(t *testing.T) {
	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{"no.such.module": {}},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for unknown module")
	}
	if !strings.Contains(err.Error(), "unknown module") {
		t.Errorf("error should mention unknown module: %v", err)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{
			"rpc.mcp":      {},
			"gateway.http": {},
			"memory.store": {},
		},
	}

	ids := Resolve(cfg)
	want := []string{"gateway.http", "memory.store", "rpc.mcp"}
	if len(ids) != len(want) {
		t.Fatalf("Resolve: got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Resolve: got %v, want %v", ids, want)
		}
	}
}
