package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/domlens/internal/executor"
	"github.com/v0xg/domlens/internal/overlay"
	"github.com/v0xg/domlens/internal/wrapper"
)

type markOptions struct {
	contains   []string
	output     string
	wholePage  bool
	annotate   bool
	box        bool
	ancestor   bool
	thumbWidth uint
}

func newMarkCmd(a *app) *cobra.Command {
	opts := &markOptions{}

	cmd := &cobra.Command{
		Use:   "mark <url> [selector]...",
		Short: "Mark matched elements on the page and save a screenshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selectors, err := collectSelectors(args[1:], opts.contains)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("thumb-width") {
				opts.thumbWidth = a.cfg.Output.ThumbWidth
			}
			output := opts.output
			if !filepath.IsAbs(output) {
				output = filepath.Join(a.cfg.Output.Dir, output)
			}

			session, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer session.Close()

			if err := mark(a, cmd, session, selectors, output, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.contains, "contains", nil, "Also mark elements whose own text contains this keyword, ignoring case")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "domlens.png", "Output filename")
	cmd.Flags().BoolVar(&opts.wholePage, "whole-page", false, "Capture the whole document instead of the viewport")
	cmd.Flags().BoolVar(&opts.annotate, "annotate", false, "Outline the elements on the screenshot itself")
	cmd.Flags().BoolVar(&opts.box, "box", true, "Draw one dashed box around all elements")
	cmd.Flags().BoolVar(&opts.ancestor, "ancestor", false, "Also mark the common ancestor")
	cmd.Flags().UintVar(&opts.thumbWidth, "thumb-width", 0, "Shrink the screenshot to this width (default from config)")
	return cmd
}

func mark(a *app, cmd *cobra.Command, session *wrapper.Session, selectors []string, output string, opts *markOptions) error {
	elements, err := executor.SelectAll(session, selectors)
	if err != nil {
		return err
	}
	a.progress(cmd, "→ Marking %d element(s)\n", len(elements))

	// geometry before marking, borders change the boxes
	rects := make([]wrapper.Rect, 0, len(elements))
	for _, el := range elements {
		r, err := el.BoundingBox()
		if err != nil {
			return err
		}
		rects = append(rects, r)
	}

	if err := session.MarkElements(elements, wrapper.DefaultMarkStyle); err != nil {
		return fmt.Errorf("mark elements: %w", err)
	}
	if opts.ancestor && len(elements) > 1 {
		if err := session.MarkCommonAncestor(elements, wrapper.DefaultBoxStyle); err != nil {
			a.logger.Warn("marking common ancestor failed", zap.Error(err))
		}
	}
	if opts.box && len(elements) > 0 {
		body, err := session.FindByTagName("body")
		if err != nil {
			return err
		}
		if err := session.DrawRectangleAround(elements, body, wrapper.DefaultBoxStyle); err != nil {
			return fmt.Errorf("draw rectangle: %w", err)
		}
	}

	origin := wrapper.Point{}
	if opts.wholePage {
		if err := session.ScreenshotWholePage(output); err != nil {
			return fmt.Errorf("screenshot: %w", err)
		}
		if page, err := session.PageBoundingBox(); err == nil {
			origin = wrapper.Point{X: page.X, Y: page.Y}
		}
	} else if err := session.Screenshot(output); err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}

	if !opts.annotate && opts.thumbWidth == 0 {
		return nil
	}
	if !opts.annotate {
		rects = nil
	}
	a.progress(cmd, "→ Post-processing %s\n", output)
	return overlay.AnnotateFile(output, output, rects, overlay.Options{
		Color:     overlay.DefaultColor,
		Thickness: 2,
		Origin:    origin,
		MaxWidth:  opts.thumbWidth,
	})
}
