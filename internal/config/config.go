package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"forward-visa/internal/forward"
)

var ErrValidation = errors.New("validation error")

const (
	DefaultForwardURL     = "https://forward-api-qa.ckotech.co/forward"
	DefaultDestinationURL = "https://api.visa.com/vts/provisionedTokens"
	DefaultTimeoutMs      = 30000
)

type Config struct {
	Forward             Forward     `yaml:"forward"`
	SourceID            string      `yaml:"source_id"`
	ProcessingChannelID string      `yaml:"processing_channel_id"`
	Destination         Destination `yaml:"destination"`
	Account             Account     `yaml:"account"`
	Resolver            *Resolver   `yaml:"resolver,omitempty"`
}

// Forward configures the call to the Forward API itself.
type Forward struct {
	URL       string `yaml:"url"`
	SecretKey string `yaml:"secret_key,omitempty"`
	TimeoutMs int    `yaml:"timeout_ms,omitempty"`
	Retries   int    `yaml:"retries,omitempty"`
}

type Destination struct {
	URL            string `yaml:"url"`
	Method         string `yaml:"method,omitempty"`
	RequestID      string `yaml:"request_id,omitempty"` // generated when empty
	RelationshipID string `yaml:"relationship_id"`
	Async          bool   `yaml:"async,omitempty"`
}

type Account struct {
	ClientWalletAccountID string `yaml:"client_wallet_account_id"`
	ClientAppID           string `yaml:"client_app_id"`
	Email                 string `yaml:"email"`
	EmailHash             string `yaml:"email_hash"`
	Locale                string `yaml:"locale,omitempty"`
}

// Resolver names an external command that rewrites the envelope before it
// is sent. Without it placeholders go to the Forward API untouched.
type Resolver struct {
	Cmd       string            `yaml:"cmd"`
	Args      []string          `yaml:"args,omitempty"`
	TimeoutMs int               `yaml:"timeout_ms,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
}

func Default() *Config {
	return &Config{
		Forward: Forward{
			URL:       DefaultForwardURL,
			TimeoutMs: DefaultTimeoutMs,
		},
		Destination: Destination{
			URL:    DefaultDestinationURL,
			Method: "POST",
		},
		Account: Account{Locale: "en_US"},
	}
}

// LoadFile reads a YAML (or JSON) config file on top of Default.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseBytes(b)
}

// ParseBytes decodes b on top of Default. Unknown fields are rejected.
// The result is not validated; call Validate once overrides are applied.
func ParseBytes(b []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(b)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	cfg.Destination.Method = strings.ToUpper(cfg.Destination.Method)
	return cfg, nil
}

// Environment variables that override the file.
const (
	EnvForwardURL          = "FORWARD_URL"
	EnvSecretKey           = "FORWARD_SECRET_KEY"
	EnvSourceID            = "FORWARD_SOURCE_ID"
	EnvProcessingChannelID = "FORWARD_PROCESSING_CHANNEL_ID"
	EnvDestinationURL      = "DESTINATION_URL"
	EnvRelationshipID      = "VISA_RELATIONSHIP_ID"
)

// ApplyEnv overrides fields from lookup (usually a merge of env files and
// os.LookupEnv). Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvForwardURL, &c.Forward.URL)
	set(EnvSecretKey, &c.Forward.SecretKey)
	set(EnvSourceID, &c.SourceID)
	set(EnvProcessingChannelID, &c.ProcessingChannelID)
	set(EnvDestinationURL, &c.Destination.URL)
	set(EnvRelationshipID, &c.Destination.RelationshipID)
}

func (c *Config) Validate() error {
	if err := validateURL("forward.url", c.Forward.URL); err != nil {
		return err
	}
	if c.Forward.SecretKey == "" {
		return wrapValidation("forward.secret_key must not be empty (or set " + EnvSecretKey + ")")
	}
	if c.Forward.TimeoutMs <= 0 {
		return wrapValidation("forward.timeout_ms must be > 0")
	}
	if c.Forward.Retries < 0 {
		return wrapValidation("forward.retries must be >= 0")
	}
	if c.SourceID == "" {
		return wrapValidation("source_id must not be empty")
	}
	if c.ProcessingChannelID == "" {
		return wrapValidation("processing_channel_id must not be empty")
	}
	if err := validateURL("destination.url", c.Destination.URL); err != nil {
		return err
	}
	if c.Destination.Method == "" {
		return wrapValidation("destination.method must not be empty")
	}
	if c.Resolver != nil && c.Resolver.Cmd == "" {
		return wrapValidation("resolver.cmd must not be empty")
	}
	return nil
}

// Envelope maps the config onto the envelope builder input.
func (c *Config) Envelope() forward.Envelope {
	return forward.Envelope{
		SourceID:                            c.SourceID,
		ProcessingChannelID:                 c.ProcessingChannelID,
		DestinationURL:                      c.Destination.URL,
		Method:                              c.Destination.Method,
		RequestID:                           c.Destination.RequestID,
		RelationshipID:                      c.Destination.RelationshipID,
		Async:                               c.Destination.Async,
		ClientWalletAccountID:               c.Account.ClientWalletAccountID,
		ClientAppID:                         c.Account.ClientAppID,
		ClientWalletAccountEmailAddress:     c.Account.Email,
		ClientWalletAccountEmailAddressHash: c.Account.EmailHash,
		Locale:                              c.Account.Locale,
	}
}

func validateURL(field, raw string) error {
	if raw == "" {
		return wrapValidation(field + " must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return wrapValidation(fmt.Sprintf("%s must be an absolute url, got %q", field, raw))
	}
	return nil
}

func wrapValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
