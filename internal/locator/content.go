package locator

import (
	"context"

	"github.com/fulmenhq/twproj/pkg/stylesheet"
)

// ContentDetector expands the auto-detect content of a css config into
// globs. Negated globs carry a leading `!`.
type ContentDetector interface {
	Detect(ctx context.Context, base string, sources []stylesheet.SourcePattern) ([]string, error)
}

// GlobDetector claims everything below the stylesheet's directory plus the
// declared sources, without scanning.
type GlobDetector struct{}

// Detect implements ContentDetector.
func (GlobDetector) Detect(ctx context.Context, base string, sources []stylesheet.SourcePattern) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []string{dirGlob(base)}
	for _, s := range sources {
		if s.Negated {
			out = append(out, "!"+s.Pattern)
			continue
		}
		out = append(out, s.Pattern)
	}
	return out, nil
}
