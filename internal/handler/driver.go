package handler

import (
	"context"
	"errors"

	"inferd/internal/engine"
)

var errConsumerGone = errors.New("consumer disconnected")

// drive runs the generation loop for one request and returns the final
// encoded output element.
//
// The engine's step stream is consumed exactly once, here. A cursor tracks
// the cumulative text length seen so far; each step's delta is the text past
// the cursor. When streaming, every non-finished step is delivered through
// the sink and the finished step's encoding becomes the returned element.
// When not streaming, nothing is emitted until the finished step, which is
// encoded whole.
func (h *Handler) drive(ctx context.Context, req *generationRequest, rctx *RequestContext) (string, error) {
	steps, err := h.engine.Generate(ctx, engine.Request{
		Prompt:    req.prompt,
		Params:    req.params,
		RequestID: req.id,
		Adapter:   req.adapter,
	})
	if err != nil {
		return "", ErrEngineFailure(err)
	}

	prevLen := 0
	var last engine.Step
	lastChunk := ""
	for step := range steps {
		if step.Err != nil {
			return "", ErrEngineFailure(step.Err)
		}
		if rctx.Disconnected != nil && rctx.Disconnected() {
			return "", ErrEngineFailure(errConsumerGone)
		}
		// Non-growth yields an empty delta, never a negative slice.
		delta := ""
		if len(step.Text) > prevLen {
			delta = step.Text[prevLen:]
			prevLen = len(step.Text)
		}
		if req.stream {
			lastChunk = h.encodePartial(rctx.Format, req.id, delta, step)
			if !step.Finished && rctx.Sink != nil {
				if err := rctx.Sink.Send([]string{lastChunk}, []string{req.id}, "Result", 200); err != nil {
					return "", ErrEngineFailure(err)
				}
			}
		}
		last = step
	}

	if req.stream {
		if lastChunk == "" {
			// Zero-step stream: final encoding operates on empty text.
			lastChunk = h.encodePartial(rctx.Format, req.id, "", last)
		}
		return lastChunk, nil
	}
	return h.encodeFull(rctx.Format, req.id, last), nil
}
