package annotate

import (
	"context"

	"github.com/cognicore/annotate/pkg/annotate/bundled"
)

// NewDefault builds a Pipeline from the bundled English models.
func NewDefault(ctx context.Context, opts Options) (*Pipeline, error) {
	return New(ctx, bundled.Locator{}, bundled.Refs(), opts)
}
