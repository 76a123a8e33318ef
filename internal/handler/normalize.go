package handler

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/google/uuid"

	"inferd/internal/adapters"
	"inferd/internal/sampling"
)

// generationRequest is the validated internal form of one inbound payload.
// Immutable once constructed.
type generationRequest struct {
	id      string
	prompt  string
	stream  bool
	params  sampling.Params
	adapter *adapters.Handle
}

// normalize turns the raw payload list into a generationRequest. Exactly one
// payload per call is accepted. Payload bytes must be valid UTF-8 JSON; the
// lora_adapter field goes to the adapter registry and every remaining field
// is offered to the sampling parameter builder.
func (h *Handler) normalize(payloads [][]byte, rctx *RequestContext) (*generationRequest, error) {
	if len(payloads) != 1 {
		return nil, ErrInvalidBatchSize(len(payloads))
	}
	body := payloads[0]
	if !utf8.Valid(body) {
		return nil, ErrDecode("payload is not valid UTF-8")
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, ErrDecode("invalid JSON payload: " + err.Error())
	}

	prompt, _ := fields["prompt"].(string)
	delete(fields, "prompt")
	stream, _ := fields["stream"].(bool)
	delete(fields, "stream")
	adapterName, _ := fields["lora_adapter"].(string)
	delete(fields, "lora_adapter")

	adapter, err := h.registry.Resolve(adapterName, h.adapters, h.modelDir)
	if err != nil {
		return nil, err
	}

	params := h.defaults
	sampling.Apply(&params, fields)

	id := rctx.RequestID
	if id == "" {
		id = "cmpl-" + uuid.NewString()
	}
	return &generationRequest{
		id:      id,
		prompt:  prompt,
		stream:  stream,
		params:  params,
		adapter: adapter,
	}, nil
}
