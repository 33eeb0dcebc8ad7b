package executor

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/v0xg/domlens/internal/wrapper"
	"github.com/ysmood/gson"
	"go.uber.org/zap"
)

// Target is the part of wrapper.Session a plan drives
type Target interface {
	Navigate(url string, opts wrapper.NavigateOptions) error
	FindByCSS(selector string) (*wrapper.Element, error)
	FindByXPath(xpath string) (*wrapper.Element, error)
	FindAllByCSS(selector string) ([]*wrapper.Element, error)
	FindAllByXPath(xpath string) ([]*wrapper.Element, error)
	MarkElements(elements []*wrapper.Element, style wrapper.BorderStyle) error
	MarkCommonAncestor(elements []*wrapper.Element, style wrapper.BorderStyle) error
	DrawRectangleAround(elements []*wrapper.Element, container *wrapper.Element, style wrapper.BorderStyle) error
	SetElementText(el *wrapper.Element, text string) error
	Screenshot(path string) error
	ScreenshotWholePage(path string) error
	SwitchToFrame(el *wrapper.Element) error
	SwitchToMainFrame()
	RunScript(js string, args ...interface{}) (gson.JSON, error)
	RunScriptFile(path string, args ...interface{}) (gson.JSON, error)
	Fullscreen(wait time.Duration) error
	SetWindowSize(width, height int) error
	ScreenshotImage() (image.Image, error)
}

// Options configures execution behavior
type Options struct {
	Navigation wrapper.NavigateOptions // defaults for navigate steps
	Dir        string                  // base directory for relative screenshot paths
	Verbose    bool
	Trace      bool // capture the viewport after every step
	Out        io.Writer
	Logger     *zap.Logger
}

// StepResult records the outcome of one step
type StepResult struct {
	Index  int
	Step   Step
	Err    error
	Output string // script result as JSON
}

// Result holds the outcome of a plan
type Result struct {
	Steps   []StepResult
	Aborted bool // a navigate step failed and the rest was skipped
	Frames  []image.Image
}

// Failed returns the number of failed steps
func (r *Result) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Execute runs the plan step by step. Failing steps are recorded and skipped,
// except navigate, whose failure stops the plan.
func Execute(target Target, plan *Plan, opts Options) *Result {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	result := &Result{}
	for i, step := range plan.Steps {
		if opts.Verbose {
			fmt.Fprintf(opts.Out, "  [%d/%d] %s %s", i+1, len(plan.Steps), step.Action, describe(step))
		}

		output, err := executeStep(target, step, opts)
		result.Steps = append(result.Steps, StepResult{Index: i, Step: step, Err: err, Output: output})

		if err != nil {
			opts.Logger.Warn("step failed", zap.Int("step", i+1), zap.String("action", step.Action), zap.Error(err))
			if opts.Verbose {
				fmt.Fprintf(opts.Out, " ✗ (%v)\n", err)
			}
			if step.Action == "navigate" {
				result.Aborted = true
				break
			}
			continue
		}

		if opts.Trace {
			if frame, err := target.ScreenshotImage(); err != nil {
				opts.Logger.Debug("trace capture failed", zap.Int("step", i+1), zap.Error(err))
			} else {
				result.Frames = append(result.Frames, frame)
			}
		}

		if opts.Verbose {
			if output != "" {
				fmt.Fprintf(opts.Out, " ✓ %s\n", output)
			} else {
				fmt.Fprintln(opts.Out, " ✓")
			}
		}
	}
	return result
}

func executeStep(target Target, step Step, opts Options) (string, error) {
	switch step.Action {
	case "navigate":
		nav := opts.Navigation
		if step.Wait > 0 {
			nav.Wait = step.Wait
		}
		if step.CloseAlert {
			nav.CloseAlert = true
		}
		return "", target.Navigate(step.URL, nav)
	case "mark":
		elements, err := SelectAll(target, step.Selectors)
		if err != nil {
			return "", err
		}
		return "", target.MarkElements(elements, styleOr(step.Style, wrapper.DefaultMarkStyle))
	case "mark-ancestor":
		elements, err := SelectAll(target, step.Selectors)
		if err != nil {
			return "", err
		}
		return "", target.MarkCommonAncestor(elements, styleOr(step.Style, wrapper.DefaultBoxStyle))
	case "draw-box":
		elements, err := SelectAll(target, step.Selectors)
		if err != nil {
			return "", err
		}
		container := step.Container
		if container == "" {
			container = "body"
		}
		box, err := SelectOne(target, container)
		if err != nil {
			return "", err
		}
		return "", target.DrawRectangleAround(elements, box, styleOr(step.Style, wrapper.DefaultBoxStyle))
	case "set-text":
		el, err := SelectOne(target, step.Selectors[0])
		if err != nil {
			return "", err
		}
		return "", target.SetElementText(el, step.Text)
	case "screenshot":
		return "", target.Screenshot(resolvePath(opts.Dir, step.Path))
	case "screenshot-page":
		return "", target.ScreenshotWholePage(resolvePath(opts.Dir, step.Path))
	case "frame":
		el, err := SelectOne(target, step.Selectors[0])
		if err != nil {
			return "", err
		}
		return "", target.SwitchToFrame(el)
	case "main-frame":
		target.SwitchToMainFrame()
		return "", nil
	case "script":
		var (
			v   gson.JSON
			err error
		)
		if step.Script != "" {
			v, err = target.RunScript(step.Script)
		} else {
			v, err = target.RunScriptFile(step.Path)
		}
		if err != nil {
			return "", err
		}
		return v.JSON("", ""), nil
	case "fullscreen":
		return "", target.Fullscreen(step.Wait)
	case "resize":
		return "", target.SetWindowSize(step.Width, step.Height)
	case "wait":
		time.Sleep(step.Wait)
		return "", nil
	default:
		return "", fmt.Errorf("unknown action type: %s", step.Action)
	}
}

// IsXPath reports whether a plan selector is an XPath expression
func IsXPath(selector string) bool {
	return strings.HasPrefix(selector, "xpath:") || strings.HasPrefix(selector, "/")
}

// SelectOne resolves a single selector, CSS or XPath
func SelectOne(target Target, selector string) (*wrapper.Element, error) {
	if IsXPath(selector) {
		return target.FindByXPath(strings.TrimPrefix(selector, "xpath:"))
	}
	return target.FindByCSS(selector)
}

// SelectAll resolves every selector and concatenates the matches in order
func SelectAll(target Target, selectors []string) ([]*wrapper.Element, error) {
	var all []*wrapper.Element
	for _, selector := range selectors {
		var (
			found []*wrapper.Element
			err   error
		)
		if IsXPath(selector) {
			found, err = target.FindAllByXPath(strings.TrimPrefix(selector, "xpath:"))
		} else {
			found, err = target.FindAllByCSS(selector)
		}
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", selector, err)
		}
		all = append(all, found...)
	}
	return all, nil
}

func styleOr(style *wrapper.BorderStyle, fallback wrapper.BorderStyle) wrapper.BorderStyle {
	if style == nil {
		return fallback
	}
	merged := fallback
	if style.Color != "" {
		merged.Color = style.Color
	}
	if style.Width != "" {
		merged.Width = style.Width
	}
	if style.Style != "" {
		merged.Style = style.Style
	}
	return merged
}

func resolvePath(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func describe(step Step) string {
	switch step.Action {
	case "navigate":
		return step.URL
	case "screenshot", "screenshot-page":
		return step.Path
	case "resize":
		return fmt.Sprintf("%dx%d", step.Width, step.Height)
	case "wait", "fullscreen":
		return step.Wait.String()
	default:
		return strings.Join(step.Selectors, ", ")
	}
}
