package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama talks to a local Ollama server's generate endpoint with the
// frame attached as a base64 image. The server decides how long
// inference takes; the caller's context carries the deadline.
type Ollama struct {
	Host   string // e.g. http://localhost:11434
	Model  string
	client *http.Client
}

func NewOllama(host, model string) *Ollama {
	return &Ollama{
		Host:   strings.TrimRight(host, "/"),
		Model:  model,
		client: &http.Client{},
	}
}

func (o *Ollama) Name() string { return "ollama" }

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (o *Ollama) Analyze(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.Model,
		Prompt: req.Prompt,
		Images: []string{base64.StdEncoding.EncodeToString(req.ImagePNG)},
		Stream: false,
	})
	if err != nil {
		return Result{}, newError(KindMalformedOutput, "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Result{}, newError(KindUnavailable, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{}, newError(KindTimeout, "generate exceeded the analyze deadline", err)
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, newError(KindUnavailable, "ollama server unreachable at "+o.Host, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{}, newError(KindTimeout, "generate exceeded the analyze deadline", err)
		}
		return Result{}, newError(KindUnavailable, "read response", err)
	}

	var gen generateResponse
	if err := json.Unmarshal(data, &gen); err != nil {
		return Result{}, newError(KindMalformedOutput, "unparseable generate response", err)
	}
	if gen.Error != "" {
		if strings.Contains(gen.Error, "not found") {
			return Result{}, newError(KindUnavailable,
				fmt.Sprintf("model %q not available, pull it first", o.Model), nil)
		}
		return Result{}, newError(KindMalformedOutput, "ollama: "+gen.Error, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, newError(KindUnavailable, "ollama returned "+resp.Status, nil)
	}

	text := strings.TrimSpace(gen.Response)
	if text == "" {
		return Result{}, newError(KindMalformedOutput, "empty generate response", nil)
	}
	return Result{Text: text}, nil
}

// Ping checks the server is up and the configured model is pulled.
func (o *Ollama) Ping(ctx context.Context) error {
	models, err := o.Models(ctx)
	if err != nil {
		return err
	}
	for _, name := range models {
		if name == o.Model || strings.TrimSuffix(name, ":latest") == o.Model {
			return nil
		}
	}
	return newError(KindUnavailable, fmt.Sprintf("model %q not available, pull it first", o.Model), nil)
}

// Models lists the models the server has pulled.
func (o *Ollama) Models(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.Host+"/api/tags", nil)
	if err != nil {
		return nil, newError(KindUnavailable, "build request", err)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, newError(KindUnavailable, "ollama server unreachable at "+o.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newError(KindUnavailable, "ollama returned "+resp.Status, nil)
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, newError(KindMalformedOutput, "unparseable tags response", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
