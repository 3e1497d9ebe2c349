package provision

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"forward-visa/internal/contract"
	"forward-visa/internal/forward"
	"forward-visa/internal/report"
	"forward-visa/internal/transport"
)

// Runner executes build → send → unwrap → print once.
type Runner struct {
	builder    *forward.Builder
	client     *transport.Client
	forwardURL string

	contractV *contract.Validator
	log       *zap.Logger
	now       func() time.Time
}

func NewRunner(b *forward.Builder, c *transport.Client, forwardURL string) *Runner {
	return &Runner{builder: b, client: c, forwardURL: forwardURL, log: zap.NewNop(), now: time.Now}
}

func (r *Runner) WithContract(v *contract.Validator) *Runner { r.contractV = v; return r }
func (r *Runner) WithLogger(l *zap.Logger) *Runner {
	if l != nil {
		r.log = l
	}
	return r
}

// Run sends the envelope and writes the pretty-printed inner data to out.
// The returned exchange is filled in on success and on failure.
func (r *Runner) Run(ctx context.Context, out io.Writer) (*report.Exchange, error) {
	ex := &report.Exchange{StartedAt: r.now().UTC(), ForwardURL: r.forwardURL}

	env, err := r.builder.Build()
	if err != nil {
		ex.Fail(err)
		return ex, err
	}
	ex.Envelope = env
	r.log.Debug("envelope built",
		zap.String("destination", env.DestinationRequest.URL),
		zap.String("request_id", env.DestinationRequest.Headers.Raw["x-request-id"]),
		zap.Int("variables", len(env.DestinationRequest.Variables)),
	)

	resp, err := r.client.Send(ctx, env)
	if err != nil {
		r.log.Error("forward request failed", zap.String("kind", report.Kind(err)), zap.Error(err))
		ex.Fail(err)
		return ex, err
	}
	ex.StatusCode = resp.StatusCode
	ex.Attempts = resp.Attempts
	ex.DurationMs = float64(resp.Duration.Milliseconds())
	r.log.Info("forward api answered",
		zap.Int("status", resp.StatusCode),
		zap.Int("attempts", resp.Attempts),
		zap.Duration("took", resp.Duration),
	)

	if r.contractV != nil {
		if err := r.contractV.CheckForward(ctx, r.forwardURL, resp.StatusCode, resp.Header, resp.Body); err != nil {
			ex.Fail(err)
			return ex, err
		}
	}

	data, err := forward.Unwrap(resp.Body)
	if err != nil {
		ex.Fail(err)
		return ex, err
	}
	if err := forward.WritePretty(out, data); err != nil {
		ex.Fail(err)
		return ex, err
	}
	ex.Passed = true
	ex.Result = data
	return ex, nil
}

// DryRun writes the envelope that Run would send, indented, without sending.
func (r *Runner) DryRun(out io.Writer) (*forward.Request, error) {
	env, err := r.builder.Build()
	if err != nil {
		return nil, err
	}
	b, err := forward.Marshal(env)
	if err != nil {
		return nil, err
	}
	if err := forward.WritePretty(out, b); err != nil {
		return nil, err
	}
	return env, nil
}
