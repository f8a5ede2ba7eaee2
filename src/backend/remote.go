package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
)

// Remote talks to an OpenRouter-compatible chat-completions endpoint.
// The frame travels as a data-URL image content part. Unknown response
// fields are tolerated; providers love adding them.
type Remote struct {
	Endpoint string
	APIKey   string
	Model    string
	client   *http.Client
}

func NewRemote(endpoint, apiKey, model string) *Remote {
	return &Remote{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Model:    model,
		client:   &http.Client{},
	}
}

func (r *Remote) Name() string { return "openrouter" }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type message struct {
	Role    string    `json:"role"`
	Content []content `json:"content"`
}

type content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Message responseMessage `json:"message"`
}

type responseMessage struct {
	Content string `json:"content"`
}

// apiError tolerates the loosely-typed error objects providers return.
type apiError struct {
	Message string      `json:"message"`
	Type    string      `json:"type,omitempty"`
	Code    interface{} `json:"code,omitempty"`
}

func (r *Remote) Analyze(ctx context.Context, req Request) (Result, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.ImagePNG)
	body, err := json.Marshal(chatRequest{
		Model: r.Model,
		Messages: []message{{
			Role: "user",
			Content: []content{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		return Result{}, newError(KindMalformedOutput, "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, newError(KindNetwork, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.APIKey)
	httpReq.Header.Set("X-Title", "screensnap")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return Result{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, classifyTransportError(ctx, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, newError(KindAuth, "API key rejected ("+resp.Status+")", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, newError(KindRateLimited, "rate limited by provider", nil)
	case resp.StatusCode >= 500:
		return Result{}, newError(KindNetwork, "provider returned "+resp.Status, nil)
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return Result{}, newError(KindMalformedOutput, "unparseable response", err)
	}
	if chat.Error != nil && chat.Error.Message != "" {
		return Result{}, newError(KindMalformedOutput, "provider error: "+chat.Error.Message, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, newError(KindNetwork, "provider returned "+resp.Status, nil)
	}
	if len(chat.Choices) == 0 {
		return Result{}, newError(KindMalformedOutput, "response has no choices", nil)
	}

	text := strings.TrimSpace(chat.Choices[0].Message.Content)
	if text == "" {
		return Result{}, newError(KindMalformedOutput, "empty completion", nil)
	}
	return Result{Text: text}, nil
}

// Ping issues a minimal request so auth problems surface at startup
// rather than on the first capture.
func (r *Remote) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, strings.NewReader("{}"))
	if err != nil {
		return newError(KindNetwork, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.APIKey)
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return newError(KindAuth, "API key rejected ("+resp.Status+")", nil)
	}
	return nil
}

// classifyTransportError separates deadline expiry from connection-level
// failures. Both are transient from the pipeline's point of view, but
// they render differently.
func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, "request exceeded the analyze deadline", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, "request timed out", err)
	}
	return newError(KindNetwork, "connection failed", err)
}
