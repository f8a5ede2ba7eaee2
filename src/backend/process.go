package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// Process runs an external analysis executable per request. The frame is
// handed over as JSON on stdin and the analysis text is read from stdout:
//
//	{"image": "<base64 png>", "prompt": "..."}
//
// Anything the executable writes to stderr is logged but not parsed.
type Process struct {
	Path string
	Args []string
}

func NewProcess(path string, args []string) *Process {
	return &Process{Path: path, Args: args}
}

func (p *Process) Name() string { return "process" }

type processRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

func (p *Process) Analyze(ctx context.Context, req Request) (Result, error) {
	payload, err := json.Marshal(processRequest{
		Image:  base64.StdEncoding.EncodeToString(req.ImagePNG),
		Prompt: req.Prompt,
	})
	if err != nil {
		return Result{}, newError(KindMalformedOutput, "encode request", err)
	}

	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if stderr.Len() > 0 {
		log.Printf("process backend stderr: %s", firstLine(stderr.String()))
	}
	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, newError(KindTimeout, "executable exceeded the analyze deadline", ctx.Err())
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return Result{}, newError(KindUnavailable,
				"executable exited with "+exitErr.String()+": "+firstLine(stderr.String()), runErr)
		}
		return Result{}, newError(KindUnavailable, "failed to start "+p.Path, runErr)
	}

	text := strings.TrimSpace(stdout.String())
	if err := validateOutput(text); err != nil {
		return Result{}, err
	}
	return Result{Text: text}, nil
}

// Ping verifies the executable exists and is runnable.
func (p *Process) Ping(ctx context.Context) error {
	if p.Path == "" {
		return newError(KindUnavailable, "no executable configured", nil)
	}
	if _, err := exec.LookPath(p.Path); err != nil {
		return newError(KindUnavailable, "executable not found: "+p.Path, err)
	}
	return nil
}

// validateOutput rejects output no overlay could render.
func validateOutput(text string) error {
	if text == "" {
		return newError(KindMalformedOutput, "executable produced no output", nil)
	}
	if !utf8.ValidString(text) {
		return newError(KindMalformedOutput, "executable produced invalid UTF-8", nil)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
