package handler

import (
	"encoding/json"
	"time"

	"inferd/internal/engine"
	"inferd/pkg/types"
)

// encodePartial renders one step's delta in the requested format. Minimal
// chunks carry only the latest token id; completion chunks are framed as a
// server-sent event for incremental delivery.
func (h *Handler) encodePartial(format Format, requestID, delta string, step engine.Step) string {
	if format == FormatMinimal {
		latest := 0
		if n := len(step.TokenIDs); n > 0 {
			latest = step.TokenIDs[n-1]
		}
		b, _ := json.Marshal(types.MinimalChunk{Text: delta, Tokens: latest})
		return string(b)
	}
	chunk := types.CompletionStreamResponse{
		ID:      requestID,
		Object:  types.ObjectTextCompletion,
		Created: time.Now().Unix(),
		Model:   h.model,
		Choices: []types.CompletionStreamChoice{{
			Index:        0,
			Text:         delta,
			Logprobs:     nil,
			FinishReason: step.FinishReason,
			StopReason:   step.StopReason,
		}},
		Usage: types.UsageInfo{},
	}
	b, _ := json.Marshal(chunk)
	return "data: " + string(b) + "\n\n"
}

// encodeFull renders the accumulated generation as one buffered response.
func (h *Handler) encodeFull(format Format, requestID string, step engine.Step) string {
	if format == FormatMinimal {
		tokens := step.TokenIDs
		if tokens == nil {
			tokens = []int{}
		}
		b, _ := json.Marshal(types.MinimalResponse{Text: step.Text, Tokens: tokens})
		return string(b)
	}
	resp := types.CompletionResponse{
		ID:      requestID,
		Object:  types.ObjectTextCompletion,
		Created: time.Now().Unix(),
		Model:   h.model,
		Choices: []types.CompletionChoice{{
			Index:        0,
			Text:         step.Text,
			Logprobs:     nil,
			FinishReason: step.FinishReason,
			StopReason:   step.StopReason,
		}},
		Usage: types.UsageInfo{},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}
