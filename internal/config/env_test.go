package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"forward-visa/internal/config"
)

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	jp := filepath.Join(dir, "env.json")
	if err := os.WriteFile(jp, []byte(`{"FORWARD_URL":"http://x","NUM":42,"BOOL":true}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dp := filepath.Join(dir, ".env")
	if err := os.WriteFile(dp, []byte("FORWARD_SECRET_KEY=sk_dot\nFORWARD_URL=http://y\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err := config.LoadEnvFiles([]string{jp, dp})
	if err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if m["NUM"] != "42" {
		t.Fatalf("NUM = %q, want 42", m["NUM"])
	}
	if m["BOOL"] != "true" {
		t.Fatalf("BOOL = %q, want true", m["BOOL"])
	}
	if m["FORWARD_SECRET_KEY"] != "sk_dot" {
		t.Fatalf("FORWARD_SECRET_KEY = %q", m["FORWARD_SECRET_KEY"])
	}
	// later file wins
	if m["FORWARD_URL"] != "http://y" {
		t.Fatalf("FORWARD_URL = %q, want http://y", m["FORWARD_URL"])
	}
}

func TestLoadEnvFiles_Missing(t *testing.T) {
	if _, err := config.LoadEnvFiles([]string{filepath.Join(t.TempDir(), "nope.env")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLookup_ProcessEnvWins(t *testing.T) {
	t.Setenv(config.EnvSecretKey, "sk_process")
	look := config.Lookup(map[string]string{
		config.EnvSecretKey: "sk_file",
		config.EnvSourceID:  "src_file",
	})
	if v, _ := look(config.EnvSecretKey); v != "sk_process" {
		t.Fatalf("secret = %q, want sk_process", v)
	}
	if v, _ := look(config.EnvSourceID); v != "src_file" {
		t.Fatalf("source = %q, want src_file", v)
	}
}

func TestLoadEnvFiles_LargeNumbersKeepDigits(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "env.json")
	if err := os.WriteFile(fp, []byte(`{"VISA_RELATIONSHIP_ID":12345678901,"RATE":0.25}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := config.LoadEnvFiles([]string{fp})
	if err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if m["VISA_RELATIONSHIP_ID"] != "12345678901" {
		t.Fatalf("VISA_RELATIONSHIP_ID = %q, want 12345678901", m["VISA_RELATIONSHIP_ID"])
	}
	if m["RATE"] != "0.25" {
		t.Fatalf("RATE = %q, want 0.25", m["RATE"])
	}
}
