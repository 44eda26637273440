package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/wikiscrape/internal/config"
)

func TestInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes a loadable template", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "conf", config.DefaultConfigFile)
		stdout, _, err := execute(t, "init", "-o", path)
		if err != nil {
			t.Fatalf("init failed: %v", err)
		}
		if !strings.Contains(stdout, "Created configuration file") {
			t.Errorf("unexpected output %q", stdout)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("file not created: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
		}

		file, err := config.LoadConfigFile(path)
		if err != nil {
			t.Fatalf("template should load: %v", err)
		}
		if file.Defaults.Delay.String() != "1s" {
			t.Errorf("expected default delay 1s, got %v", file.Defaults.Delay)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		if err := os.WriteFile(path, []byte("mine"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, _, err := execute(t, "init", "-o", path); err == nil {
			t.Fatal("expected error for existing file")
		}
		data, _ := os.ReadFile(path) //nolint:errcheck // compared below
		if string(data) != "mine" {
			t.Error("existing file was modified")
		}
	})

	t.Run("force overwrites", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		if err := os.WriteFile(path, []byte("mine"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, _, err := execute(t, "init", "-o", path, "-f"); err != nil {
			t.Fatalf("init -f failed: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "defaults:") {
			t.Error("expected template content")
		}
	})
}
