package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v0xg/domlens/internal/executor"
	"github.com/v0xg/domlens/internal/wrapper"
	"github.com/v0xg/domlens/internal/xpath"
)

const maxTextLen = 60

func newInspectCmd(a *app) *cobra.Command {
	var contains []string

	cmd := &cobra.Command{
		Use:   "inspect <url> [selector]...",
		Short: "Report geometry, text and the common ancestor of matched elements",
		Long: `inspect loads the page and prints one line per matched element. Selectors
starting with "/" or "xpath:" are XPath expressions, everything else is CSS.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selectors, err := collectSelectors(args[1:], contains)
			if err != nil {
				return err
			}

			session, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer session.Close()

			return inspect(cmd.OutOrStdout(), session, selectors)
		},
	}

	cmd.Flags().StringSliceVar(&contains, "contains", nil, "Also match elements whose own text contains this keyword, ignoring case")
	return cmd
}

// collectSelectors appends a text-match XPath for every keyword
func collectSelectors(selectors, keywords []string) ([]string, error) {
	all := append([]string{}, selectors...)
	for _, kw := range keywords {
		all = append(all, textSelector(kw))
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("at least one selector or --contains keyword is required")
	}
	return all, nil
}

func textSelector(keyword string) string {
	return fmt.Sprintf("//*[text()[%s]]", xpath.Contains(xpath.ToLower("."), strings.ToLower(keyword)))
}

func inspect(out io.Writer, session *wrapper.Session, selectors []string) error {
	if doc, err := session.SourceDocument(); err == nil {
		fmt.Fprintf(out, "title:    %s\n", strings.TrimSpace(doc.Find("title").First().Text()))
	}
	if domain, err := session.Domain(); err == nil {
		fmt.Fprintf(out, "domain:   %s\n", domain)
	}
	if page, err := session.PageBoundingBox(); err == nil {
		fmt.Fprintf(out, "page:     %s\n", formatRect(page))
	}
	if viewport, err := session.ViewportRect(); err == nil {
		fmt.Fprintf(out, "viewport: %.0fx%.0f\n", viewport.Width, viewport.Height)
	}

	elements, err := executor.SelectAll(session, selectors)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d element(s)\n", len(elements))

	for i, el := range elements {
		line, err := describeElement(session, el)
		if err != nil {
			fmt.Fprintf(out, "  [%d] ✗ %v\n", i+1, err)
			continue
		}
		fmt.Fprintf(out, "  [%d] %s\n", i+1, line)
	}

	if len(elements) < 2 {
		return nil
	}
	ancestor, err := session.CommonAncestor(elements)
	if err != nil {
		return fmt.Errorf("common ancestor: %w", err)
	}
	line, err := describeElement(session, ancestor)
	if err != nil {
		return fmt.Errorf("common ancestor: %w", err)
	}
	fmt.Fprintf(out, "\ncommon ancestor: %s\n", line)
	return nil
}

func describeElement(session *wrapper.Session, el *wrapper.Element) (string, error) {
	tag, err := el.TagName()
	if err != nil {
		return "", err
	}
	box, err := el.BoundingBox()
	if err != nil {
		return "", err
	}
	relative, err := session.RelativeSize(el)
	if err != nil {
		return "", err
	}
	displayed, err := el.Displayed()
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("<%s> %s %.1f%% of page displayed=%t %q",
		tag, formatRect(box), relative*100, displayed, truncate(text, maxTextLen)), nil
}

func formatRect(r wrapper.Rect) string {
	return fmt.Sprintf("%.0fx%.0f at (%.0f, %.0f)", r.Width, r.Height, r.X, r.Y)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
