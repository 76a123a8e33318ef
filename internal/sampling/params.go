// Package sampling builds engine sampling parameters by overlaying
// caller-supplied fields onto engine defaults.
package sampling

// Params carries the engine-recognized sampling fields with their defaults.
// Values are not range-checked here; the engine rejects invalid ones.
type Params struct {
	N                 int
	BestOf            int
	PresencePenalty   float64
	FrequencyPenalty  float64
	RepetitionPenalty float64
	Temperature       float64
	TopP              float64
	TopK              int
	MinP              float64
	Seed              int64
	Stop              []string
	StopTokenIDs      []int
	IgnoreEOS         bool
	MaxTokens         int
	Logprobs          int
	SkipSpecialTokens bool
}

// Defaults returns the engine's default parameter set.
func Defaults() Params {
	return Params{
		N:                 1,
		RepetitionPenalty: 1.0,
		Temperature:       1.0,
		TopP:              1.0,
		TopK:              -1,
		MaxTokens:         16,
		SkipSpecialTokens: true,
	}
}

// Apply overlays recognized keys from overlay onto p and deletes each
// consumed key from overlay, so callers can inspect leftover keys.
// Unrecognized keys are ignored and left in place: request payloads may
// carry fields meant for other layers. A recognized key whose JSON value
// does not fit the field keeps the default but is still consumed.
func Apply(p *Params, overlay map[string]any) {
	for k, v := range overlay {
		switch k {
		case "n":
			setInt(&p.N, v)
		case "best_of":
			setInt(&p.BestOf, v)
		case "presence_penalty":
			setFloat(&p.PresencePenalty, v)
		case "frequency_penalty":
			setFloat(&p.FrequencyPenalty, v)
		case "repetition_penalty":
			setFloat(&p.RepetitionPenalty, v)
		case "temperature":
			setFloat(&p.Temperature, v)
		case "top_p":
			setFloat(&p.TopP, v)
		case "top_k":
			setInt(&p.TopK, v)
		case "min_p":
			setFloat(&p.MinP, v)
		case "seed":
			setInt64(&p.Seed, v)
		case "stop":
			setStrings(&p.Stop, v)
		case "stop_token_ids":
			setInts(&p.StopTokenIDs, v)
		case "ignore_eos":
			setBool(&p.IgnoreEOS, v)
		case "max_tokens":
			setInt(&p.MaxTokens, v)
		case "logprobs":
			setInt(&p.Logprobs, v)
		case "skip_special_tokens":
			setBool(&p.SkipSpecialTokens, v)
		default:
			continue
		}
		delete(overlay, k)
	}
}

// Overlay values come from encoding/json, so numbers arrive as float64.

func setInt(dst *int, v any) {
	if f, ok := v.(float64); ok {
		*dst = int(f)
	}
}

func setInt64(dst *int64, v any) {
	if f, ok := v.(float64); ok {
		*dst = int64(f)
	}
}

func setFloat(dst *float64, v any) {
	if f, ok := v.(float64); ok {
		*dst = f
	}
}

func setBool(dst *bool, v any) {
	if b, ok := v.(bool); ok {
		*dst = b
	}
}

func setStrings(dst *[]string, v any) {
	switch t := v.(type) {
	case string:
		*dst = []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		*dst = out
	}
}

func setInts(dst *[]int, v any) {
	if t, ok := v.([]any); ok {
		out := make([]int, 0, len(t))
		for _, e := range t {
			if f, ok := e.(float64); ok {
				out = append(out, int(f))
			}
		}
		*dst = out
	}
}
