package narrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// koboldGeneratePath is the koboldcpp text generation endpoint.
const koboldGeneratePath = "/api/v1/generate"

// koboldStopSequences end generation before the model invents the next turn.
var koboldStopSequences = []string{"\nRequest:", "\nResponse:", "\nRequest "}

type koboldRequest struct {
	Prompt       string   `json:"prompt"`
	MaxLength    int      `json:"max_length,omitempty"`
	StopSequence []string `json:"stop_sequence"`
	Quiet        bool     `json:"quiet"`
}

type koboldResponse struct {
	Results []struct {
		Text string `json:"text"`
	} `json:"results"`
}

// Kobold talks to a local koboldcpp server.
type Kobold struct {
	baseURL    string
	maxLength  int
	httpClient *http.Client
}

// NewKobold creates a Kobold narrator for the server at baseURL, e.g.
// "http://127.0.0.1:5001". The HTTP client has no timeout of its own; bound
// requests with WithTimeout.
func NewKobold(baseURL string, maxLength int) *Kobold {
	return &Kobold{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxLength:  maxLength,
		httpClient: &http.Client{},
	}
}

// Request frames prompt as a "Request:/Response:" exchange and returns the
// first generation result.
func (k *Kobold) Request(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(koboldRequest{
		Prompt:       "Request:\n" + prompt + "\nResponse:\n",
		MaxLength:    k.maxLength,
		StopSequence: koboldStopSequences,
		Quiet:        true,
	})
	if err != nil {
		return "", fmt.Errorf("kobold: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+koboldGeneratePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("kobold: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("kobold: sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("kobold: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("kobold: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out koboldResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("kobold: decoding response: %w", err)
	}
	if len(out.Results) == 0 {
		return "", fmt.Errorf("kobold: %w", ErrEmptyResponse)
	}
	return nonEmpty("kobold", out.Results[0].Text)
}
