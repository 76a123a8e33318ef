// Package engine defines the boundary to the external token-generation
// engine and an HTTP-backed implementation of it.
package engine

import (
	"context"

	"inferd/internal/adapters"
	"inferd/internal/sampling"
)

// Step is one unit of engine output. Text is the cumulative generated text
// so far and TokenIDs the cumulative token id sequence. Exactly one step per
// request carries Finished=true; it terminates the stream. A step with Err
// set aborts the stream instead.
type Step struct {
	Text         string
	TokenIDs     []int
	Finished     bool
	FinishReason string
	StopReason   string
	Err          error
}

// Request bundles one generation call.
type Request struct {
	Prompt    string
	Params    sampling.Params
	RequestID string
	// Adapter is nil when the base model is used as-is.
	Adapter *adapters.Handle
}

// Engine produces an asynchronous step stream for a single request.
// The returned channel is closed after the finished step or after a step
// carrying an error. Implementations must stop producing when ctx is done.
type Engine interface {
	Generate(ctx context.Context, req Request) (<-chan Step, error)
}
