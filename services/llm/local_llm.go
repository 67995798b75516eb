package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

type LocalLlamaCppClient struct {
	httpClient *http.Client
	baseURL    string
}

type localLlamaCppPayload struct {
	Prompt        string   `json:"prompt"`
	NPredict      int      `json:"n_predict"`
	Temperature   *float32 `json:"temperature,omitempty"`
	TopP          *float32 `json:"top_p,omitempty"`
	RepeatPenalty *float32 `json:"repeat_penalty,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

type llamaCppResp struct {
	Content string `json:"content"`
}

func NewLocalLlamaCppClient() (*LocalLlamaCppClient, error) {
	baseURL := os.Getenv("LLM_SERVICE_URL_BASE")
	if baseURL == "" {
		return nil, fmt.Errorf("LLM_SERVICE_URL_BASE environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &LocalLlamaCppClient{
		// No timeout: generation latency is unbounded by design and the
		// gate serializes calls, so a hung backend stalls only its turn.
		httpClient: &http.Client{},
		baseURL:    baseURL,
	}, nil
}

// NewLocalLlamaCppClientWithURL is a constructor for tests and explicit wiring.
func NewLocalLlamaCppClientWithURL(baseURL string) *LocalLlamaCppClient {
	return &LocalLlamaCppClient{
		httpClient: &http.Client{},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Generate implements the LLMClient interface
func (l *LocalLlamaCppClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	completionURL := l.baseURL + "/completion"
	payload := localLlamaCppPayload{Prompt: prompt}
	if params.MaxTokens != nil {
		payload.NPredict = *params.MaxTokens
	} else {
		payload.NPredict = 512
	}
	if params.Temperature != nil {
		payload.Temperature = params.Temperature
	} else {
		var defaultTemperature float32 = 0.2
		payload.Temperature = &defaultTemperature
	}
	if params.TopP != nil {
		payload.TopP = params.TopP
	} else {
		var defaultTopP float32 = 0.9
		payload.TopP = &defaultTopP
	}
	if params.RepetitionPenalty != nil {
		payload.RepeatPenalty = params.RepetitionPenalty
	}
	if params.DoSample != nil && !*params.DoSample {
		// Greedy decoding: llama.cpp has no do_sample switch, temperature 0
		// is the equivalent.
		var zero float32 = 0.0
		payload.Temperature = &zero
	}
	if params.Stop != nil {
		payload.Stop = params.Stop
	}

	reqBodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal the payload %w", err)
	}
	slog.Debug("Calling Llama.cpp Generate", "url", completionURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionURL,
		bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to build the llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make a request to the llm: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read the llm's response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm backend returned status %d: %s", resp.StatusCode, string(body))
	}
	var llmResponseBody llamaCppResp
	if err := json.Unmarshal(body, &llmResponseBody); err != nil {
		return "", fmt.Errorf("failed to parse the llm response %w", err)
	}
	return llmResponseBody.Content, nil
}

// Release erases the server's slot KV cache so memory between turns stays
// bounded. Failures are reported to the caller, who treats them as advisory.
func (l *LocalLlamaCppClient) Release(ctx context.Context) error {
	eraseURL := l.baseURL + "/slots/0?action=erase"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eraseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build the slot erase request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to erase the llm slot cache: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	// Older llama.cpp builds ship without slot endpoints; nothing to free then.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNotImplemented {
		slog.Debug("llm backend has no slot endpoints, skipping cache release")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slot erase returned status %d", resp.StatusCode)
	}
	return nil
}
