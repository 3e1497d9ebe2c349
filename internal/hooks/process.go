package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"forward-visa/internal/forward"
)

// Process describes an external command that rewrites the envelope before
// it is sent: it reads Input as JSON on stdin and writes Output on stdout.
type Process struct {
	Cmd     string
	Args    []string
	Timeout time.Duration // 10s when zero
	Env     map[string]string
}

type Input struct {
	Request *forward.Request `json:"request"`
}

type Output struct {
	Request *forward.Request `json:"request,omitempty"` // nil keeps the input
	Errors  []string         `json:"errors,omitempty"`
}

// Resolver runs a Process as a template resolver.
type Resolver struct {
	Process Process
}

func (r Resolver) Resolve(ctx context.Context, req *forward.Request) (*forward.Request, error) {
	out, err := Run(ctx, r.Process, Input{Request: req})
	if err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("hook %s: %v", r.Process.Cmd, errors.Join(toErrs(out.Errors)...))
	}
	if out.Request == nil {
		return req, nil
	}
	if err := out.Request.DestinationRequest.Variables.Validate(); err != nil {
		return nil, fmt.Errorf("hook %s: %w", r.Process.Cmd, err)
	}
	return out.Request, nil
}

func Run(ctx context.Context, h Process, in Input) (*Output, error) {
	if h.Cmd == "" {
		return nil, errors.New("hook cmd must not be empty")
	}
	tmo := h.Timeout
	if tmo <= 0 {
		tmo = 10 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, tmo)
	defer cancel()

	cmd := exec.CommandContext(cctx, h.Cmd, h.Args...)

	// inherit env + add hook env
	cmd.Env = os.Environ()
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	if err := json.NewEncoder(stdin).Encode(in); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return nil, fmt.Errorf("encode stdin: %w", err)
	}
	_ = stdin.Close()

	var out Output
	if err := json.NewDecoder(stdout).Decode(&out); err != nil {
		_ = cmd.Wait()
		return nil, fmt.Errorf("decode stdout: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("hook exit: %w", err)
	}
	return &out, nil
}

func toErrs(msgs []string) []error {
	out := make([]error, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, errors.New(m))
	}
	return out
}
