package ai

import "context"

// Client is the provider-agnostic contract every LLM backend implements.
// Complete must classify every failure into the ErrorCode taxonomy and
// return it as a *Error; callers decide retry and breaker behavior from the
// code alone.
type Client interface {
	// Complete performs one completion call. The context carries the
	// per-call timeout; implementations must honor cancellation.
	Complete(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// Name returns the provider's stable identifier.
	Name() ProviderID
}
