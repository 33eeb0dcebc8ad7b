package executor

import (
	"fmt"
	"os"
	"time"

	"github.com/v0xg/domlens/internal/wrapper"
	"gopkg.in/yaml.v3"
)

// Step is a single inspection action
type Step struct {
	Action     string               `yaml:"action"`              // see knownActions
	URL        string               `yaml:"url,omitempty"`       // navigate
	Selectors  []string             `yaml:"selectors,omitempty"` // CSS, or XPath when prefixed with "xpath:" or "/"
	Container  string               `yaml:"container,omitempty"` // draw-box target, defaults to body
	Text       string               `yaml:"text,omitempty"`      // set-text
	Path       string               `yaml:"path,omitempty"`      // screenshot output or script file
	Script     string               `yaml:"script,omitempty"`    // inline function expression
	Width      int                  `yaml:"width,omitempty"`     // resize
	Height     int                  `yaml:"height,omitempty"`    // resize
	Wait       time.Duration        `yaml:"wait,omitempty"`      // navigate, fullscreen, wait
	CloseAlert bool                 `yaml:"close_alert,omitempty"`
	Style      *wrapper.BorderStyle `yaml:"style,omitempty"`
}

// Plan is an ordered list of steps run against one session
type Plan struct {
	Steps []Step `yaml:"steps"`
}

var knownActions = map[string]bool{
	"navigate":        true,
	"mark":            true,
	"mark-ancestor":   true,
	"draw-box":        true,
	"set-text":        true,
	"screenshot":      true,
	"screenshot-page": true,
	"frame":           true,
	"main-frame":      true,
	"script":          true,
	"fullscreen":      true,
	"resize":          true,
	"wait":            true,
}

// LoadPlan reads a YAML plan from path
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates a YAML plan
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks every step for a known action and its required fields
func (p *Plan) Validate() error {
	for i, step := range p.Steps {
		if !knownActions[step.Action] {
			return fmt.Errorf("step %d: unknown action %q", i+1, step.Action)
		}
		switch step.Action {
		case "navigate":
			if step.URL == "" {
				return fmt.Errorf("step %d: navigate needs url", i+1)
			}
		case "mark", "mark-ancestor", "draw-box", "set-text", "frame":
			if len(step.Selectors) == 0 {
				return fmt.Errorf("step %d: %s needs selectors", i+1, step.Action)
			}
		case "screenshot", "screenshot-page":
			if step.Path == "" {
				return fmt.Errorf("step %d: %s needs path", i+1, step.Action)
			}
		case "script":
			if step.Script == "" && step.Path == "" {
				return fmt.Errorf("step %d: script needs script or path", i+1)
			}
		case "resize":
			if step.Width <= 0 || step.Height <= 0 {
				return fmt.Errorf("step %d: resize needs width and height", i+1)
			}
		}
	}
	return nil
}
