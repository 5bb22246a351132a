package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("terio", pflag.ContinueOnError)
	RegisterFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.Data != "terio.db" || !cfg.OpenBrowser || cfg.File != "" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.ListenAddr() != "localhost:8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr())
	}
	if cfg.ContainerWidth != 1000 || cfg.ContainerHeight != 1000 {
		t.Errorf("container = %gx%g", cfg.ContainerWidth, cfg.ContainerHeight)
	}
}

func TestLayering(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "terio.toml"), "port = 9000\ndata = \"file.db\"\nexport_dir = \"from-file\"\nseed = 3\n")
	writeFile(t, filepath.Join(dir, ".env"), "TERIO_DATA=dotenv.db\nTERIO_PASSWORD=secreto\nOTHER=ignored\n")
	t.Setenv("TERIO_EXPORT_DIR", "from-env")
	t.Setenv("TERIO_DATA", "env.db")

	cfg, err := Load(newFlags(t, "--port", "9100", "-vv"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File != "terio.toml" {
		t.Errorf("File = %q", cfg.File)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, flag should win", cfg.Port)
	}
	if cfg.Data != "env.db" {
		t.Errorf("Data = %q, env should beat .env and file", cfg.Data)
	}
	if cfg.ExportDir != "from-env" {
		t.Errorf("ExportDir = %q", cfg.ExportDir)
	}
	if cfg.Password != "secreto" {
		t.Errorf("Password = %q, want value from .env", cfg.Password)
	}
	if cfg.Seed != 3 {
		t.Errorf("Seed = %d, want value from file", cfg.Seed)
	}
	if cfg.VerboseCnt != 2 {
		t.Errorf("VerboseCnt = %d", cfg.VerboseCnt)
	}
	if _, ok := os.LookupEnv("TERIO_PASSWORD"); ok {
		t.Error(".env leaked into the process environment")
	}
}

func TestYAMLConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "port: 7000\njson_logs: true\ncontainer_width: 640\n")

	cfg, err := Load(newFlags(t, "--config", path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7000 || !cfg.JSONLogs || cfg.ContainerWidth != 640 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestMissingExplicitConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(newFlags(t, "--config", "nope.toml")); err == nil {
		t.Error("expected an error for a missing --config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"port", []string{"--port", "0"}},
		{"container", []string{"--container-width", "-1"}},
		{"data", []string{"--data", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			if _, err := Load(newFlags(t, tt.args...)); err == nil {
				t.Errorf("Load(%v) accepted invalid config", tt.args)
			}
		})
	}
}

func TestInMemory(t *testing.T) {
	cfg := &Config{Data: ":memory:"}
	if !cfg.InMemory() {
		t.Error("InMemory() = false")
	}
}
