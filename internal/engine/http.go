package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPEngine talks to a running generation backend over HTTP using the
// OpenAI-compatible /v1/completions endpoint with SSE streaming, and turns
// the delta stream into cumulative Steps.
type HTTPEngine struct {
	baseURL    string
	apiKey     string
	model      string
	reqTimeout time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPEngine constructs a server-backed engine. model is the backend
// model identifier sent with every request; an adapter reference overrides
// it, matching the served-adapter convention of vLLM-style servers.
func NewHTTPEngine(baseURL, apiKey, model string, reqTimeout, connectTimeout time.Duration, log zerolog.Logger) *HTTPEngine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Client timeout stays 0: deadlines are carried by request contexts so
	// long streams are not cut off mid-generation.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &HTTPEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		reqTimeout: reqTimeout,
		httpClient: cli,
		log:        log.With().Str("component", "engine").Logger(),
	}
}

// completionPayload is the request body for /v1/completions.
type completionPayload struct {
	Model             string   `json:"model,omitempty"`
	Prompt            string   `json:"prompt"`
	N                 int      `json:"n,omitempty"`
	BestOf            int      `json:"best_of,omitempty"`
	PresencePenalty   float64  `json:"presence_penalty,omitempty"`
	FrequencyPenalty  float64  `json:"frequency_penalty,omitempty"`
	RepetitionPenalty float64  `json:"repetition_penalty,omitempty"`
	Temperature       float64  `json:"temperature"`
	TopP              float64  `json:"top_p"`
	TopK              int      `json:"top_k,omitempty"`
	MinP              float64  `json:"min_p,omitempty"`
	Seed              int64    `json:"seed,omitempty"`
	Stop              []string `json:"stop,omitempty"`
	StopTokenIDs      []int    `json:"stop_token_ids,omitempty"`
	IgnoreEOS         bool     `json:"ignore_eos,omitempty"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	Logprobs          int      `json:"logprobs,omitempty"`
	SkipSpecialTokens bool     `json:"skip_special_tokens"`
	Stream            bool     `json:"stream"`
	ReturnTokens      bool     `json:"return_tokens,omitempty"`
}

// streamChunk is the subset of the SSE chunk shape we consume. Tokens is a
// llama.cpp extension filled when return_tokens is honored.
type streamChunk struct {
	Choices []struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
		StopReason   string `json:"stop_reason"`
	} `json:"choices"`
	Tokens []int `json:"tokens"`
}

func (e *HTTPEngine) Generate(ctx context.Context, req Request) (<-chan Step, error) {
	payload := completionPayload{
		Model:             e.model,
		Prompt:            req.Prompt,
		N:                 req.Params.N,
		BestOf:            req.Params.BestOf,
		PresencePenalty:   req.Params.PresencePenalty,
		FrequencyPenalty:  req.Params.FrequencyPenalty,
		RepetitionPenalty: req.Params.RepetitionPenalty,
		Temperature:       req.Params.Temperature,
		TopP:              req.Params.TopP,
		TopK:              req.Params.TopK,
		MinP:              req.Params.MinP,
		Seed:              req.Params.Seed,
		Stop:              req.Params.Stop,
		StopTokenIDs:      req.Params.StopTokenIDs,
		IgnoreEOS:         req.Params.IgnoreEOS,
		MaxTokens:         req.Params.MaxTokens,
		Logprobs:          req.Params.Logprobs,
		SkipSpecialTokens: req.Params.SkipSpecialTokens,
		Stream:            true,
		ReturnTokens:      true,
	}
	if req.Adapter != nil {
		payload.Model = req.Adapter.Name
	}
	body, _ := json.Marshal(payload)

	cancel := context.CancelFunc(func() {})
	if e.reqTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.reqTimeout)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, errors.New("engine http error: " + resp.Status + ": " + string(b))
	}

	steps := make(chan Step)
	go e.readStream(ctx, cancel, resp.Body, req.RequestID, steps)
	return steps, nil
}

// readStream parses the SSE body and emits cumulative steps until [DONE],
// EOF or an error. It always closes resp body and the channel.
func (e *HTTPEngine) readStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, requestID string, steps chan<- Step) {
	defer close(steps)
	defer cancel()
	defer func() { _ = body.Close() }()

	send := func(s Step) bool {
		select {
		case steps <- s:
			return true
		case <-ctx.Done():
			return false
		}
	}

	r := bufio.NewReader(body)
	var cum strings.Builder
	var tokens []int
	finishReason, stopReason := "", ""
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSpace(line)
			if line == "" {
				// skip heartbeats/empties
			} else if strings.HasPrefix(strings.ToLower(line), "data:") {
				data := strings.TrimSpace(line[len("data:"):])
				if data == "[DONE]" {
					send(Step{
						Text:         cum.String(),
						TokenIDs:     tokens,
						Finished:     true,
						FinishReason: finishReason,
						StopReason:   stopReason,
					})
					return
				}
				var chunk streamChunk
				if err := json.Unmarshal([]byte(data), &chunk); err != nil {
					e.log.Debug().Str("request_id", requestID).Str("line", line).Msg("unknown stream line")
					continue
				}
				if len(chunk.Choices) > 0 {
					cum.WriteString(chunk.Choices[0].Text)
					if fr := chunk.Choices[0].FinishReason; fr != "" {
						finishReason = fr
					}
					if sr := chunk.Choices[0].StopReason; sr != "" {
						stopReason = sr
					}
				}
				tokens = append(tokens, chunk.Tokens...)
				if !send(Step{Text: cum.String(), TokenIDs: append([]int(nil), tokens...)}) {
					return
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				send(Step{
					Text:         cum.String(),
					TokenIDs:     tokens,
					Finished:     true,
					FinishReason: finishReason,
					StopReason:   stopReason,
				})
				return
			}
			if ctx.Err() != nil {
				send(Step{Err: ctx.Err()})
				return
			}
			e.log.Error().Err(err).Str("request_id", requestID).Msg("stream read error")
			send(Step{Err: err})
			return
		}
	}
}
