package ports

import (
	"context"

	"gocoex/domain/dataset"
)

// ExpressionResolverPort loads spot-by-entity expression bundles from a backing source
type ExpressionResolverPort interface {
	// ResolveBundle produces a validated ExpressionBundle for the given request
	ResolveBundle(ctx context.Context, req BundleResolutionRequest) (*dataset.ExpressionBundle, error)
}

// BundleResolutionRequest defines the parameters for bundle resolution
type BundleResolutionRequest struct {
	Source   string   // workbook path or dataset locator
	Entities []string // optional subset of entity keys to load; nil means all
}
