package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"intake-backend/internal/analysis"
)

const maxErrorBody = 512

// Client invokes analysis functions over HTTP at {baseURL}/functions/v1/{name}.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs a Client. timeout bounds each call.
func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("ANALYSIS_BASE_URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse ANALYSIS_BASE_URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type invokeResponse struct {
	Fields  map[string]any `json:"fields"`
	Summary string         `json:"summary"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Invoke posts req as JSON and decodes the extracted fields.
func (c *Client) Invoke(ctx context.Context, function string, req analysis.Request) (analysis.Result, error) {
	if strings.TrimSpace(function) == "" {
		return analysis.Result{}, errors.New("function name is required")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return analysis.Result{}, err
	}

	endpoint := c.baseURL + "/functions/v1/" + url.PathEscape(function)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return analysis.Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return analysis.Result{}, fmt.Errorf("analysis request timeout: %w", err)
		}
		return analysis.Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return analysis.Result{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return analysis.Result{}, fmt.Errorf("analysis function %s returned %d: %s", function, resp.StatusCode, snippet)
	}

	var parsed invokeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return analysis.Result{}, fmt.Errorf("analysis response parse: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return analysis.Result{}, fmt.Errorf("analysis function %s: %s", function, parsed.Error.Message)
	}
	return analysis.Result{Fields: flattenFields(parsed.Fields), Summary: parsed.Summary}, nil
}

// flattenFields keeps scalar values and drops nested objects.
func flattenFields(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64, bool:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

var _ analysis.Client = (*Client)(nil)
