package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"forward-visa/internal/config"
	"forward-visa/internal/contract"
	"forward-visa/internal/forward"
	"forward-visa/internal/hooks"
	"forward-visa/internal/logging"
	"forward-visa/internal/provision"
	"forward-visa/internal/report"
	"forward-visa/internal/transport"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// Exit codes: 0 ok, 1 the exchange failed, 2 usage or configuration error.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("forward-visa", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath     = fs.String("config", "", "Path to YAML config file")
		envPaths    = fs.String("env", "", "Comma-separated env files (.env or .json); defaults to ./.env when present")
		destURL     = fs.String("destination-url", "", "Override destination.url")
		dryRun      = fs.Bool("dry-run", false, "Print the envelope instead of sending it")
		useContract = fs.Bool("contract", false, "Validate the Forward API response against the built-in OpenAPI description")
		openapiPath = fs.String("openapi", "", "Validate the Forward API response against this OpenAPI file")
		reportPath  = fs.String("report", "", "Write a JSON record of the exchange to this path")
		verbose     = fs.Bool("v", false, "Verbose: debug logging")
		logJSON     = fs.Bool("log-json", false, "Log as JSON lines")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	fail := func(format string, a ...any) int {
		fmt.Fprintf(stderr, "error: "+format+"\n", a...)
		return exitUsage
	}

	log := logging.New(logging.Options{Verbose: *verbose, JSON: *logJSON, Out: stderr})
	defer func() { _ = log.Sync() }()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.LoadFile(*cfgPath)
		if err != nil {
			return fail("config: %v", err)
		}
	}

	files, err := config.LoadEnvFiles(envFiles(*envPaths))
	if err != nil {
		return fail("load env: %v", err)
	}
	cfg.ApplyEnv(config.Lookup(files))
	if *destURL != "" {
		cfg.Destination.URL = *destURL
	}
	if *dryRun && cfg.Forward.SecretKey == "" {
		cfg.Forward.SecretKey = "dry-run"
	}
	if err := cfg.Validate(); err != nil {
		return fail("config: %v", err)
	}

	builder := forward.NewBuilder(cfg.Envelope(), forward.WithRequestIDs(uuid.NewString))

	var resolver transport.TemplateResolver = transport.Delegated{Log: log}
	if cfg.Resolver != nil {
		resolver = hooks.Resolver{Process: hooks.Process{
			Cmd:     cfg.Resolver.Cmd,
			Args:    cfg.Resolver.Args,
			Timeout: time.Duration(cfg.Resolver.TimeoutMs) * time.Millisecond,
			Env:     cfg.Resolver.Env,
		}}
	}
	client := transport.New(transport.Options{
		URL:       cfg.Forward.URL,
		SecretKey: cfg.Forward.SecretKey,
		Timeout:   time.Duration(cfg.Forward.TimeoutMs) * time.Millisecond,
		Retries:   cfg.Forward.Retries,
		Resolver:  resolver,
		Log:       log,
	})
	r := provision.NewRunner(builder, client, cfg.Forward.URL).WithLogger(log)

	if *dryRun {
		if _, err := r.DryRun(stdout); err != nil {
			return fail("dry run: %v", err)
		}
		return exitOK
	}

	var v *contract.Validator
	switch {
	case *openapiPath != "":
		v, err = contract.LoadFromFile(*openapiPath)
	case *useContract:
		v, err = contract.Default()
	}
	if err != nil {
		return fail("openapi load: %v", err)
	}
	if v != nil {
		r = r.WithContract(v)
	}

	log.Info("sending provisioning request",
		zap.String("forward_url", cfg.Forward.URL),
		zap.String("destination", cfg.Destination.URL),
		zap.String("secret_key", logging.Redact(cfg.Forward.SecretKey)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ex, runErr := r.Run(ctx, stdout)

	if *reportPath != "" {
		if err := writeFile(*reportPath, func(f *os.File) error {
			return report.WriteJSON(f, ex)
		}); err != nil {
			return fail("%v", err)
		}
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "error: %s\n", describe(runErr))
		return exitFailed
	}
	return exitOK
}

// describe prefixes the error with its class for the one-line summary.
func describe(err error) string {
	var he *forward.HTTPStatusError
	if errors.As(err, &he) && he.StatusCode == http.StatusUnauthorized {
		return fmt.Sprintf("%s: %v (check FORWARD_SECRET_KEY)", report.Kind(err), err)
	}
	return fmt.Sprintf("%s: %v", report.Kind(err), err)
}

// ---- helpers ----

func envFiles(flagVal string) []string {
	if flagVal != "" {
		return splitCSV(flagVal)
	}
	if _, err := os.Stat(".env"); err == nil {
		return []string{".env"}
	}
	return nil
}

func writeFile(path string, fn func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
