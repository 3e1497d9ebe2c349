package config_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"forward-visa/internal/config"
)

const validYAML = `
forward:
  url: https://forward-api-qa.ckotech.co/forward
  secret_key: sk_test_1
  timeout_ms: 5000
source_id: src_snxdnj5ijfmupnuygwz744sbxu
processing_channel_id: pc_cvbbk7dyapdeho2qmuzozupapi
destination:
  url: https://httpbun.com/anything
  method: post
  relationship_id: rel-1
account:
  client_wallet_account_id: wallet-1
  client_app_id: app-1
  email: user@example.com
  email_hash: hash-1
`

const unknownFieldYAML = `
forward:
  url: https://forward-api-qa.ckotech.co/forward
  notARealField: true
`

func TestParse_Valid(t *testing.T) {
	cfg, err := config.ParseBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Destination.Method != "POST" {
		t.Fatalf("method = %s, want POST", cfg.Destination.Method)
	}
	if cfg.Forward.TimeoutMs != 5000 {
		t.Fatalf("timeout_ms = %d, want 5000", cfg.Forward.TimeoutMs)
	}
	// defaults survive for fields the file leaves out
	if cfg.Account.Locale != "en_US" {
		t.Fatalf("locale = %q, want en_US", cfg.Account.Locale)
	}

	env := cfg.Envelope()
	if env.DestinationURL != "https://httpbun.com/anything" || env.RelationshipID != "rel-1" {
		t.Fatalf("envelope = %+v", env)
	}
	if env.ClientWalletAccountEmailAddress != "user@example.com" {
		t.Fatalf("email = %q", env.ClientWalletAccountEmailAddress)
	}
}

func TestParse_Resolver(t *testing.T) {
	cfg, err := config.ParseBytes([]byte(validYAML + `
resolver:
  cmd: ./resolve.sh
  args: [--vault, qa]
  timeout_ms: 2000
`))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	want := &config.Resolver{Cmd: "./resolve.sh", Args: []string{"--vault", "qa"}, TimeoutMs: 2000}
	if diff := cmp.Diff(want, cfg.Resolver); diff != "" {
		t.Fatalf("resolver (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParse_Empty_UsesDefaults(t *testing.T) {
	cfg, err := config.ParseBytes(nil)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Fatalf("defaults (-want +got):\n%s", diff)
	}
	if cfg.Destination.URL != config.DefaultDestinationURL {
		t.Fatalf("destination url = %s", cfg.Destination.URL)
	}
}

func TestParse_KnownFieldsEnforced(t *testing.T) {
	if _, err := config.ParseBytes([]byte(unknownFieldYAML)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing secret", func(c *config.Config) { c.Forward.SecretKey = "" }},
		{"relative forward url", func(c *config.Config) { c.Forward.URL = "/forward" }},
		{"zero timeout", func(c *config.Config) { c.Forward.TimeoutMs = 0 }},
		{"negative retries", func(c *config.Config) { c.Forward.Retries = -1 }},
		{"missing source", func(c *config.Config) { c.SourceID = "" }},
		{"missing channel", func(c *config.Config) { c.ProcessingChannelID = "" }},
		{"missing destination", func(c *config.Config) { c.Destination.URL = "" }},
		{"resolver without cmd", func(c *config.Config) { c.Resolver = &config.Resolver{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := config.ParseBytes([]byte(validYAML))
			if err != nil {
				t.Fatalf("ParseBytes: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, config.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := config.Default()
	vals := map[string]string{
		config.EnvSecretKey:      "sk_env",
		config.EnvDestinationURL: "https://httpbun.com/anything",
		config.EnvForwardURL:     "",
	}
	cfg.ApplyEnv(func(k string) (string, bool) { v, ok := vals[k]; return v, ok })

	if cfg.Forward.SecretKey != "sk_env" {
		t.Fatalf("secret = %q", cfg.Forward.SecretKey)
	}
	if cfg.Destination.URL != "https://httpbun.com/anything" {
		t.Fatalf("destination = %q", cfg.Destination.URL)
	}
	if cfg.Forward.URL != config.DefaultForwardURL {
		t.Fatalf("empty override replaced forward url: %q", cfg.Forward.URL)
	}
}

func TestLoadFile_Example(t *testing.T) {
	cfg, err := config.LoadFile("../../config.example.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg.Forward.SecretKey = "sk_test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Destination.URL != "https://httpbun.com/anything" {
		t.Fatalf("destination = %q", cfg.Destination.URL)
	}
}
