package llm

import "context"

type GenerationParams struct {
	Temperature       *float32 `json:"temperature"`
	TopP              *float32 `json:"top_p"`
	MaxTokens         *int     `json:"max_tokens"`
	RepetitionPenalty *float32 `json:"repetition_penalty"`
	DoSample          *bool    `json:"do_sample"`
	Stop              []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Release drops any transient per-request state the backend still holds
	// (KV cache slots, generation buffers). Called between turns so the
	// backend's peak memory stays bounded. Backends that manage their own
	// cache may no-op.
	Release(ctx context.Context) error
}
