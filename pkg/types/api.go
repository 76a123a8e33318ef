package types

// MinimalChunk is one streamed unit of the minimal response format.
// Text is the delta since the previous step; Tokens carries only the
// latest token id.
type MinimalChunk struct {
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// MinimalResponse is the buffered (non-streaming) minimal response format:
// the full generated text and the full token id sequence.
type MinimalResponse struct {
	Text   string `json:"text"`
	Tokens []int  `json:"tokens"`
}

// UsageInfo carries token accounting for the completion protocol.
// The handler reports zeroes: token accounting belongs to the engine.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionChoice is one choice of a full completion response.
type CompletionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Logprobs     any    `json:"logprobs"`
	FinishReason string `json:"finish_reason,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
}

// CompletionResponse is the full (non-streaming) completion protocol
// response. Model is the served model name as configured at startup.
type CompletionResponse struct {
	ID      string             `json:"id" example:"cmpl-5f9c9f2a"`
	Object  string             `json:"object" example:"text_completion"`
	Created int64              `json:"created" example:"1700000000"`
	Model   string             `json:"model" example:"tinyllama-q4"`
	Choices []CompletionChoice `json:"choices"`
	Usage   UsageInfo          `json:"usage"`
}

// CompletionStreamChoice is one choice of a streamed completion chunk.
type CompletionStreamChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Logprobs     any    `json:"logprobs"`
	FinishReason string `json:"finish_reason,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
}

// CompletionStreamResponse is one streamed chunk of the completion protocol.
type CompletionStreamResponse struct {
	ID      string                   `json:"id"`
	Object  string                   `json:"object"`
	Created int64                    `json:"created"`
	Model   string                   `json:"model"`
	Choices []CompletionStreamChoice `json:"choices"`
	Usage   UsageInfo                `json:"usage"`
}

// ObjectTextCompletion is the protocol object tag for both completion shapes.
const ObjectTextCompletion = "text_completion"

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON payload
	Error string `json:"error" example:"invalid JSON payload"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ModelList is the /v1/models response envelope.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// ModelInfo describes one served model.
type ModelInfo struct {
	ID     string `json:"id"`
	Object string `json:"object"`
}
