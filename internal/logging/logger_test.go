package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"forward-visa/internal/logging"
)

func TestNew_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Options{JSON: true, Out: &buf})
	log.Debug("hidden")
	log.Info("sent", zap.Int("status", 200))
	_ = log.Sync()

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not a single JSON line: %v (%q)", err, buf.String())
	}
	if line["msg"] != "sent" {
		t.Fatalf("msg = %v", line["msg"])
	}
	if line["status"] != float64(200) {
		t.Fatalf("status = %v", line["status"])
	}
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Options{Verbose: true, Out: &buf})
	log.Debug("envelope built")
	_ = log.Sync()
	if !bytes.Contains(buf.Bytes(), []byte("envelope built")) {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}

func TestRedact(t *testing.T) {
	if got := logging.Redact("sk_qa_h7b7hthffmnj2tg7fkvaoksyzi6"); got != "sk_qa_***" {
		t.Fatalf("Redact = %q", got)
	}
	if got := logging.Redact("abc"); got != "***" {
		t.Fatalf("Redact short = %q", got)
	}
}
