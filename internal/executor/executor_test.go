package executor

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/domlens/internal/wrapper"
	"github.com/ysmood/gson"
)

// fakeTarget records calls instead of driving a browser
type fakeTarget struct {
	calls    []string
	navErr   error
	found    map[string][]*wrapper.Element
	marked   []wrapper.BorderStyle
	shotPath string
	nav      wrapper.NavigateOptions
	frameErr error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{found: map[string][]*wrapper.Element{}}
}

func (f *fakeTarget) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeTarget) Navigate(url string, opts wrapper.NavigateOptions) error {
	f.record("navigate " + url)
	f.nav = opts
	return f.navErr
}

func (f *fakeTarget) FindByCSS(selector string) (*wrapper.Element, error) {
	f.record("css " + selector)
	if els := f.found[selector]; len(els) > 0 {
		return els[0], nil
	}
	return nil, wrapper.ErrNotFound
}

func (f *fakeTarget) FindByXPath(xpath string) (*wrapper.Element, error) {
	f.record("xpath " + xpath)
	if els := f.found[xpath]; len(els) > 0 {
		return els[0], nil
	}
	return nil, wrapper.ErrNotFound
}

func (f *fakeTarget) FindAllByCSS(selector string) ([]*wrapper.Element, error) {
	f.record("css* " + selector)
	return f.found[selector], nil
}

func (f *fakeTarget) FindAllByXPath(xpath string) ([]*wrapper.Element, error) {
	f.record("xpath* " + xpath)
	return f.found[xpath], nil
}

func (f *fakeTarget) MarkElements(elements []*wrapper.Element, style wrapper.BorderStyle) error {
	f.record("mark")
	f.marked = append(f.marked, style)
	return nil
}

func (f *fakeTarget) MarkCommonAncestor(elements []*wrapper.Element, style wrapper.BorderStyle) error {
	f.record("mark-ancestor")
	return nil
}

func (f *fakeTarget) DrawRectangleAround(elements []*wrapper.Element, container *wrapper.Element, style wrapper.BorderStyle) error {
	f.record("draw-box")
	return nil
}

func (f *fakeTarget) SetElementText(el *wrapper.Element, text string) error {
	f.record("set-text " + text)
	return nil
}

func (f *fakeTarget) Screenshot(path string) error {
	f.record("screenshot")
	f.shotPath = path
	return nil
}

func (f *fakeTarget) ScreenshotWholePage(path string) error {
	f.record("screenshot-page")
	f.shotPath = path
	return nil
}

func (f *fakeTarget) SwitchToFrame(el *wrapper.Element) error {
	f.record("frame")
	return nil
}

func (f *fakeTarget) SwitchToMainFrame() { f.record("main-frame") }

func (f *fakeTarget) RunScript(js string, args ...interface{}) (gson.JSON, error) {
	f.record("script")
	return gson.New(map[string]int{"n": 3}), nil
}

func (f *fakeTarget) RunScriptFile(path string, args ...interface{}) (gson.JSON, error) {
	f.record("script-file " + path)
	return gson.New(true), nil
}

func (f *fakeTarget) Fullscreen(wait time.Duration) error {
	f.record("fullscreen")
	return nil
}

func (f *fakeTarget) SetWindowSize(width, height int) error {
	f.record("resize")
	return nil
}

func (f *fakeTarget) ScreenshotImage() (image.Image, error) {
	f.record("capture")
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 3)), nil
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	target := newFakeTarget()
	target.found["h1"] = []*wrapper.Element{{}}
	target.found["body"] = []*wrapper.Element{{}}

	plan := &Plan{Steps: []Step{
		{Action: "navigate", URL: "example.com"},
		{Action: "mark", Selectors: []string{"h1"}},
		{Action: "draw-box", Selectors: []string{"h1"}},
		{Action: "screenshot", Path: "out.png"},
		{Action: "main-frame"},
	}}

	var out bytes.Buffer
	result := Execute(target, plan, Options{Dir: "shots", Verbose: true, Out: &out})

	assert.False(t, result.Aborted)
	assert.Equal(t, 0, result.Failed())
	assert.Equal(t, []string{
		"navigate example.com",
		"css* h1", "mark",
		"css* h1", "css body", "draw-box",
		"screenshot",
		"main-frame",
	}, target.calls)
	assert.Equal(t, filepath.Join("shots", "out.png"), target.shotPath)
	assert.Contains(t, out.String(), "[1/5] navigate example.com ✓")
}

func TestExecuteAbortsOnNavigationFailure(t *testing.T) {
	target := newFakeTarget()
	target.navErr = &wrapper.NavigationError{URL: "http://www.nowhere.invalid", Err: wrapper.ErrConnectionLost}

	plan := &Plan{Steps: []Step{
		{Action: "navigate", URL: "nowhere.invalid"},
		{Action: "screenshot", Path: "never.png"},
	}}
	result := Execute(target, plan, Options{})

	assert.True(t, result.Aborted)
	require.Len(t, result.Steps, 1)
	assert.ErrorIs(t, result.Steps[0].Err, wrapper.ErrConnectionLost)
	assert.Equal(t, []string{"navigate nowhere.invalid"}, target.calls)
}

func TestExecuteContinuesAfterStepFailure(t *testing.T) {
	target := newFakeTarget()
	plan := &Plan{Steps: []Step{
		{Action: "set-text", Selectors: []string{"#missing"}, Text: "x"},
		{Action: "resize", Width: 800, Height: 600},
	}}
	result := Execute(target, plan, Options{})

	assert.False(t, result.Aborted)
	assert.Equal(t, 1, result.Failed())
	assert.True(t, errors.Is(result.Steps[0].Err, wrapper.ErrNotFound))
	assert.NoError(t, result.Steps[1].Err)
}

func TestExecuteNavigationDefaults(t *testing.T) {
	target := newFakeTarget()
	plan := &Plan{Steps: []Step{{Action: "navigate", URL: "http://a.test", Wait: 2 * time.Second, CloseAlert: true}}}

	Execute(target, plan, Options{Navigation: wrapper.NavigateOptions{Timeout: time.Minute}})

	assert.Equal(t, wrapper.NavigateOptions{Wait: 2 * time.Second, CloseAlert: true, Timeout: time.Minute}, target.nav)
}

func TestExecuteXPathSelectors(t *testing.T) {
	target := newFakeTarget()
	target.found["//div"] = []*wrapper.Element{{}, {}}

	plan := &Plan{Steps: []Step{{Action: "mark-ancestor", Selectors: []string{"xpath://div"}}}}
	Execute(target, plan, Options{})

	assert.Equal(t, []string{"xpath* //div", "mark-ancestor"}, target.calls)
}

func TestExecuteScriptOutput(t *testing.T) {
	target := newFakeTarget()
	plan := &Plan{Steps: []Step{
		{Action: "script", Script: "() => ({n: 3})"},
		{Action: "script", Path: "probe.js"},
	}}
	result := Execute(target, plan, Options{})

	assert.Equal(t, `{"n":3}`, result.Steps[0].Output)
	assert.Equal(t, "true", result.Steps[1].Output)
}

func TestStyleOverride(t *testing.T) {
	target := newFakeTarget()
	plan := &Plan{Steps: []Step{
		{Action: "mark", Selectors: []string{"p"}, Style: &wrapper.BorderStyle{Color: "blue"}},
		{Action: "mark", Selectors: []string{"p"}},
	}}
	Execute(target, plan, Options{})

	require.Len(t, target.marked, 2)
	assert.Equal(t, wrapper.BorderStyle{Color: "blue", Width: "6px", Style: "solid"}, target.marked[0])
	assert.Equal(t, wrapper.DefaultMarkStyle, target.marked[1])
}

func TestExecuteTrace(t *testing.T) {
	target := newFakeTarget()
	plan := &Plan{Steps: []Step{
		{Action: "navigate", URL: "a.test"},
		{Action: "set-text", Selectors: []string{"#missing"}, Text: "x"},
		{Action: "main-frame"},
	}}

	result := Execute(target, plan, Options{Trace: true})

	assert.Len(t, result.Frames, 2, "failed steps add no frame")
	assert.Equal(t, []string{
		"navigate a.test", "capture",
		"css #missing",
		"main-frame", "capture",
	}, target.calls)
}

func TestExecuteTraceCaptureFailure(t *testing.T) {
	target := newFakeTarget()
	target.frameErr = wrapper.ErrTimeout
	plan := &Plan{Steps: []Step{{Action: "main-frame"}}}

	result := Execute(target, plan, Options{Trace: true})

	assert.Empty(t, result.Frames)
	assert.Equal(t, 0, result.Failed())
}
