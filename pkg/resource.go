package gate

import "context"

// ResourceProvider fetches the gated resource once a payment is accepted.
// A lookup that finds nothing returns a NotFound or UpstreamUnavailable error.
type ResourceProvider interface {
	Fetch(ctx context.Context, params string) ([]byte, error)
}

// ParamValidator is implemented by providers that can reject malformed
// params before any payment is asked for.
type ParamValidator interface {
	ValidateParams(params string) error
}
