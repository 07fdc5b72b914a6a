package fieldextract

import (
	"context"
	"log/slog"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
	"github.com/plumclaims/opd-adjudicator/internal/core/ports"
)

// Chain tries the primary extractor and falls back to the secondary when the
// primary fails outright (e.g. the model endpoint is down).
type Chain struct {
	primary  ports.FieldExtractor
	fallback ports.FieldExtractor
}

func WithFallback(primary, fallback ports.FieldExtractor) *Chain {
	return &Chain{primary: primary, fallback: fallback}
}

func (c *Chain) ExtractFields(ctx context.Context, text string) (*domain.ExtractedClaimData, error) {
	data, err := c.primary.ExtractFields(ctx, text)
	if err == nil {
		return data, nil
	}
	slog.Warn("primary_field_extraction_failed", "error", err)
	return c.fallback.ExtractFields(ctx, text)
}
