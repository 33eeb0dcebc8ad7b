package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/domlens/internal/driver"
	"github.com/v0xg/domlens/internal/executor"
	"github.com/v0xg/domlens/internal/gifgen"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		trace      string
		traceDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Execute an inspection plan",
		Long: `run executes the steps of a YAML plan against one browser page.

Example plan:
  steps:
    - action: navigate
      url: example.com
    - action: mark
      selectors: ["h1", "//p"]
    - action: screenshot
      path: marked.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := executor.LoadPlan(args[0])
			if err != nil {
				return err
			}

			session, err := driver.Launch(a.cfg.Browser, a.logger)
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "→ Running %s (%d steps)\n", args[0], len(plan.Steps))
			result := executor.Execute(session, plan, executor.Options{
				Navigation: a.navigateOptions(),
				Dir:        a.cfg.Output.Dir,
				Verbose:    true,
				Trace:      trace != "",
				Out:        out,
				Logger:     a.logger,
			})

			if trace != "" {
				writeTrace(a, cmd, result, trace, traceDelay)
			}

			if result.Aborted {
				return fmt.Errorf("plan aborted after %d of %d steps", len(result.Steps), len(plan.Steps))
			}
			if failed := result.Failed(); failed > 0 {
				fmt.Fprintf(out, "⚠ %d of %d steps failed\n", failed, len(plan.Steps))
				return nil
			}
			fmt.Fprintf(out, "✓ %d steps done\n", len(plan.Steps))
			return nil
		},
	}

	cmd.Flags().StringVar(&trace, "trace", "", "Write a GIF with one frame per completed step")
	cmd.Flags().DurationVar(&traceDelay, "trace-delay", gifgen.DefaultFrameDelay, "How long each trace frame is shown")
	return cmd
}

func writeTrace(a *app, cmd *cobra.Command, result *executor.Result, path string, delay time.Duration) {
	out := cmd.OutOrStdout()
	if len(result.Frames) == 0 {
		fmt.Fprintln(out, "⚠ No frames captured, trace skipped")
		return
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.cfg.Output.Dir, path)
	}

	fmt.Fprintf(out, "→ Generating trace (%d frames)... ", len(result.Frames))
	size, err := gifgen.WriteFile(path, result.Frames, gifgen.Options{
		FrameDelay: delay,
		MaxWidth:   a.cfg.Output.ThumbWidth,
	})
	if err != nil {
		fmt.Fprintln(out, "failed")
		a.logger.Warn("writing trace failed", zap.String("path", path), zap.Error(err))
		return
	}
	fmt.Fprintf(out, "done (%.1f KB, %s)\n", float64(size)/1024, path)
}
