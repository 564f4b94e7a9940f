package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lmrun/internal/errs"
	"lmrun/internal/manager"
	"lmrun/internal/session"
)

var genOpts struct {
	model       string
	maxTokens   int
	temperature float32
	topP        float32
	topK        int
	seed        uint32
	quiet       bool
	hw          hardwareFlags
}

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Load a model and generate a completion",
	Long:  "Load a model and stream a completion to stdout. With no prompt argument, or \"-\", the prompt is read from stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if n := genOpts.maxTokens; n < 1 || n > session.MaxTokensLimit {
			return errs.InvalidArgument("--max-tokens must be in 1..%d, got %d", session.MaxTokensLimit, n)
		}
		c := cfg
		fs := cmd.Flags()
		if fs.Changed("model") {
			c.Model = genOpts.model
		}
		if fs.Changed("temperature") {
			c.Sampling.Temperature = genOpts.temperature
		}
		if fs.Changed("top-p") {
			c.Sampling.TopP = genOpts.topP
		}
		if fs.Changed("top-k") {
			c.Sampling.TopK = genOpts.topK
		}
		if fs.Changed("seed") {
			c.Sampling.Seed = genOpts.seed
		}
		if err := genOpts.hw.apply(cmd, &c.Hardware); err != nil {
			return err
		}
		if c.Model == "" {
			return fmt.Errorf("no model: pass --model or set model in the config")
		}
		if err := applyConfig(c); err != nil {
			return err
		}
		prompt, err := readPrompt(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return generate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), prompt)
	},
}

func init() {
	fs := generateCmd.Flags()
	fs.StringVarP(&genOpts.model, "model", "m", "", "model identifier or path to a .gguf file")
	fs.IntVarP(&genOpts.maxTokens, "max-tokens", "n", session.DefaultMaxTokens, "maximum tokens to generate")
	fs.Float32Var(&genOpts.temperature, "temperature", 0.7, "sampling temperature [0, 2]")
	fs.Float32Var(&genOpts.topP, "top-p", 0.9, "nucleus sampling threshold [0, 1]")
	fs.IntVar(&genOpts.topK, "top-k", 40, "top-k sampling (0 disables)")
	fs.Uint32Var(&genOpts.seed, "seed", 0, "sampler seed (0 is random)")
	fs.BoolVarP(&genOpts.quiet, "quiet", "q", false, "omit the summary line")
	genOpts.hw.register(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func generate(ctx context.Context, stdout, stderr io.Writer, prompt string) error {
	loc := newLocator(stderr)
	defer loc.Close()
	mgr := newManager(loc, nil)
	defer func() {
		if err := mgr.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("unload failed")
		}
	}()

	if err := mgr.EnsureModel(ctx, cfg.Model); err != nil {
		return err
	}
	res, err := mgr.Generate(ctx, manager.GenerateRequest{Prompt: prompt, MaxTokens: genOpts.maxTokens}, func(piece string) error {
		_, werr := io.WriteString(stdout, piece)
		return werr
	})
	fmt.Fprintln(stdout)
	if err != nil {
		return err
	}
	if !genOpts.quiet {
		fmt.Fprintf(stderr, "%s %d prompt + %d completion tokens in %s (%s, finish=%s)\n",
			color.GreenString("done:"),
			res.PromptTokens, res.CompletionTokens, res.Duration.Round(time.Millisecond),
			color.CyanString("%.1f tok/s", res.TokensPerSecond()), res.FinishReason)
	}
	return nil
}
