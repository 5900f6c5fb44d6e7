package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/vidpipe/schema"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemasCommand(t *testing.T) {
	out, err := execute(t, "schemas")
	if err != nil {
		t.Fatalf("schemas: %v", err)
	}
	if out != string(schema.BuiltinYAML()) {
		t.Error("schemas output differs from the built-in tables")
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "vidpipe version ") {
		t.Errorf("out = %q", out)
	}
}

func TestMigrateCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yml")
	dsn := "file:" + filepath.Join(dir, "vidpipe.db") + "?_busy_timeout=5000"
	if err := os.WriteFile(cfgPath, []byte("environment: staging\nlogging:\n  level: error\ndatabase:\n  driver: sqlite\n  dsn: \""+dsn+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"up", "version", "down"} {
		if _, err := execute(t, "--config", cfgPath, "migrate", sub); err != nil {
			t.Fatalf("migrate %s: %v", sub, err)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := execute(t, "transcode"); err == nil {
		t.Error("expected error for unknown command")
	}
}
