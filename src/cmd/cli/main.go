// Command screensnap is the headless CLI: one-shot capture and
// analysis, target and model listing, backend checks, and trigger
// delegation to a running resident.
package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"screensnap/src/backend"
	"screensnap/src/capture"
	"screensnap/src/config"
	"screensnap/src/logutil"
	"screensnap/src/singleinstance"
	"screensnap/src/target"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var verbose bool

func vlog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "screensnap",
		Short:         "Capture the screen and describe it with an AI backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logutil.Setup(false) // CLI output stays on stdout/stderr only
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	root.AddCommand(
		newCaptureCmd(),
		newTargetsCmd(),
		newModelsCmd(),
		newCheckCmd(),
		newTriggerCmd(),
	)
	return root
}

type captureOptions struct {
	window      string
	screen      int
	save        string
	noAI        bool
	model       string
	backendName string
	prompt      string
	timeout     time.Duration
	jsonOut     bool
}

// analysisResult is the --json output shape.
type analysisResult struct {
	Text     string  `json:"text"`
	Target   string  `json:"target"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Backend  string  `json:"backend"`
	Duration float64 `json:"duration_sec"`
}

func newCaptureCmd() *cobra.Command {
	opts := &captureOptions{}
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture once, analyze, and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(opts)
		},
	}
	cmd.Flags().StringVarP(&opts.window, "window", "w", "", "capture the window whose title contains this text")
	cmd.Flags().IntVar(&opts.screen, "screen", -1, "capture a specific display instead of all of them")
	cmd.Flags().StringVar(&opts.save, "save", "", "also write the captured frame to this PNG file")
	cmd.Flags().BoolVar(&opts.noAI, "no-ai", false, "capture only, skip analysis")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "override the configured model")
	cmd.Flags().StringVar(&opts.backendName, "backend", "", "override the configured backend (process|ollama|openrouter)")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "override the configured prompt")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "override the analyze deadline")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit JSON instead of plain text")
	return cmd
}

func runCapture(opts *captureOptions) error {
	cfg, err := loadConfig(opts.backendName, opts.model)
	if err != nil {
		return err
	}
	if opts.prompt != "" {
		cfg.Prompt = opts.prompt
	}
	if opts.timeout > 0 {
		cfg.AnalyzeDeadline = opts.timeout
	}

	sel := selection(opts)
	vlog("resolving target %q", sel)
	t, err := target.Resolve(sel)
	if err != nil {
		return err
	}
	vlog("resolved %s", t)

	started := time.Now()
	res, err := capture.New().Capture(t)
	if err != nil {
		return err
	}
	vlog("captured %dx%d in %v", res.Origin.Dx(), res.Origin.Dy(), time.Since(started))

	if opts.save != "" {
		if err := savePNG(opts.save, res); err != nil {
			return err
		}
		vlog("frame written to %s", opts.save)
	}
	if opts.noAI {
		if opts.save == "" {
			return fmt.Errorf("--no-ai without --save produces nothing")
		}
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	b, err := backend.New(cfg)
	if err != nil {
		return err
	}
	frame, err := res.PNG()
	if err != nil {
		return err
	}

	vlog("analyzing with %s (%s)", b.Name(), cfg.Model)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.AnalyzeDeadline)
	defer cancel()
	analysisStart := time.Now()
	result, err := b.Analyze(ctx, backend.Request{ImagePNG: frame, Prompt: cfg.Prompt})
	if err != nil {
		return err
	}
	elapsed := time.Since(analysisStart)
	vlog("analysis finished in %v", elapsed)

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysisResult{
			Text:     result.Text,
			Target:   t.Title,
			Width:    res.Origin.Dx(),
			Height:   res.Origin.Dy(),
			Backend:  b.Name(),
			Duration: elapsed.Seconds(),
		})
	}
	fmt.Println(result.Text)
	return nil
}

func selection(opts *captureOptions) string {
	if opts.window != "" {
		return opts.window
	}
	if opts.screen >= 0 {
		return "screen:" + strconv.Itoa(opts.screen)
	}
	return ""
}

func savePNG(path string, res *capture.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, res.Image)
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List capturable displays and windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := target.List()
			if err != nil {
				return err
			}
			for _, t := range targets {
				fmt.Println(t)
			}
			return nil
		},
	}
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models available on the Ollama server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("", "")
			if err != nil {
				return err
			}
			o := backend.NewOllama(cfg.OllamaHost, cfg.Model)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			models, err := o.Models(ctx)
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Println("no models pulled yet")
				return nil
			}
			for _, m := range models {
				fmt.Println(m)
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	var backendName string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the configured backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(backendName, "")
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			b, err := backend.New(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := b.Ping(ctx); err != nil {
				return fmt.Errorf("%s backend: %w", b.Name(), err)
			}
			fmt.Printf("%s backend is ready\n", b.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&backendName, "backend", "", "override the configured backend")
	return cmd
}

func newTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Ask the running resident to capture now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			delegated, err := singleinstance.NewClient().TryTrigger(ctx)
			if err != nil {
				return err
			}
			if !delegated {
				return fmt.Errorf("no running instance found")
			}
			fmt.Println("capture triggered")
			return nil
		},
	}
}

func loadConfig(backendOverride, modelOverride string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if backendOverride != "" {
		cfg.Backend = strings.ToLower(backendOverride)
	}
	if modelOverride != "" {
		cfg.Model = modelOverride
	}
	return cfg, nil
}
