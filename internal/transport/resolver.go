package transport

import (
	"context"

	"go.uber.org/zap"

	"forward-visa/internal/forward"
)

// TemplateResolver prepares an envelope's placeholders before it is sent.
type TemplateResolver interface {
	Resolve(ctx context.Context, req *forward.Request) (*forward.Request, error)
}

// Delegated leaves every placeholder for the Forward API to resolve. It only
// logs what it saw.
type Delegated struct {
	Log *zap.Logger
}

func (d Delegated) Resolve(_ context.Context, req *forward.Request) (*forward.Request, error) {
	if d.Log != nil {
		ph := forward.RequestPlaceholders(req)
		counts := map[forward.PlaceholderKind]int{}
		for _, p := range ph {
			counts[p.Kind]++
		}
		d.Log.Debug("placeholders delegated to forward api",
			zap.Int("fields", counts[forward.KindField]),
			zap.Int("secrets", counts[forward.KindSecret]),
			zap.Int("functions", counts[forward.KindFunction]),
		)
	}
	return req, nil
}
