package wrapper

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"
	"github.com/ysmood/gson"
	"go.uber.org/zap"
)

const (
	// DefaultScriptTimeout bounds every injected script
	DefaultScriptTimeout = 5 * time.Second
	// alertTimeout bounds the dialog dismissal after navigation
	alertTimeout = time.Second
)

// BorderStyle is the CSS border used to mark elements
type BorderStyle struct {
	Color string `yaml:"color" json:"color"`
	Width string `yaml:"width" json:"width"`
	Style string `yaml:"style" json:"style"`
}

var (
	// DefaultMarkStyle is used by MarkElements
	DefaultMarkStyle = BorderStyle{Color: "red", Width: "6px", Style: "solid"}
	// DefaultBoxStyle is used by DrawRectangleAround and MarkCommonAncestor
	DefaultBoxStyle = BorderStyle{Color: "red", Width: "2px", Style: "dashed"}
)

func (b BorderStyle) css() string {
	return fmt.Sprintf("%s %s %s", b.Width, b.Style, b.Color)
}

// NavigateOptions configures Navigate
type NavigateOptions struct {
	Wait       time.Duration // unconditional sleep after the load
	CloseAlert bool          // dismiss a JS dialog left open by the page
	Timeout    time.Duration // bounds the load itself, zero waits forever
}

// Session wraps one browser page. It is not safe for concurrent use.
type Session struct {
	root    *rod.Page // top-level document
	page    *rod.Page // current execution context, root or an iframe
	onClose func()
	logger  *zap.Logger
	timeout time.Duration

	url      *string
	pageRect *Rect
	pageArea *float64
	closed   bool
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger used for swallowed failures
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScriptTimeout overrides DefaultScriptTimeout. Zero disables the limit.
func WithScriptTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithCloser registers a hook run by Close after the page is closed,
// typically to stop the browser process that owns the page.
func WithCloser(fn func()) Option {
	return func(s *Session) {
		s.onClose = fn
	}
}

// NewSession wraps an already connected page
func NewSession(page *rod.Page, opts ...Option) *Session {
	s := &Session{
		root:    page,
		page:    page,
		logger:  zap.NewNop(),
		timeout: DefaultScriptTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Page returns the page of the current execution context
func (s *Session) Page() *rod.Page {
	return s.page
}

// scripted returns the page bound by the script timeout and the func that
// releases its timer
func (s *Session) scripted() (*rod.Page, func()) {
	if s.timeout > 0 {
		p := s.page.Timeout(s.timeout)
		return p, func() { p.CancelTimeout() }
	}
	return s.page, func() {}
}

func (s *Session) locator() *rod.Page {
	return s.page.Sleeper(rod.NotFoundSleeper)
}

func (s *Session) wrap(el *rod.Element) *Element {
	return newElement(el, s.timeout)
}

func (s *Session) reset() {
	s.url = nil
	s.pageRect = nil
	s.pageArea = nil
}

// Close releases the page and runs the closer hook. Failures are logged, never returned.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("panic while closing session", zap.Any("recovered", r))
		}
	}()

	if s.root != nil {
		if err := s.root.Close(); err != nil {
			s.logger.Debug("closing page failed", zap.Error(err))
		}
	}
	if s.onClose != nil {
		s.onClose()
	}
}

// NormalizeURL prefixes scheme-less input: "example.com" becomes
// "http://www.example.com" and "www.example.com" becomes "http://www.example.com".
// Anything starting with "http" is returned unchanged.
func NormalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	if !strings.HasPrefix(raw, "www") {
		raw = "www." + raw
	}
	return "http://" + raw
}

// Navigate loads url in the top-level document and switches the execution
// context back to it. A nil error means the page rendered a body.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	s.reset()
	s.url = &url
	s.page = s.root

	target := NormalizeURL(url)
	if err := s.load(target, opts); err != nil {
		navErr := &NavigationError{URL: target, Err: classify(err)}
		s.logger.Info("page failed to load", zap.String("url", target), zap.Error(err))
		return navErr
	}
	return nil
}

func (s *Session) load(target string, opts NavigateOptions) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("navigation panicked: %v", r)
		}
	}()

	page := s.root
	if opts.Timeout > 0 {
		page = s.root.Timeout(opts.Timeout)
		defer page.CancelTimeout()
	}

	// a dialog blocks every evaluation until it is closed, so it must be
	// answered while the page loads
	if opts.CloseAlert {
		stop := s.dismissDialogs()
		defer stop()
	}

	if err := page.Navigate(target); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}
	time.Sleep(opts.Wait)

	if _, err := page.Sleeper(rod.NotFoundSleeper).Element("body"); err != nil {
		return err
	}
	return nil
}

// dismissDialogs dismisses every JS dialog the page opens until stop is called
func (s *Session) dismissDialogs() (stop func()) {
	p, cancel := s.root.WithCancel()
	wait := p.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		s.logger.Debug("dismissing dialog", zap.String("type", string(e.Type)), zap.String("message", e.Message))
		s.dismissAlert()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *Session) dismissAlert() {
	p := s.root.Timeout(alertTimeout)
	defer p.CancelTimeout()

	if err := (proto.PageHandleJavaScriptDialog{Accept: false}).Call(p); err != nil {
		s.logger.Debug("no dialog dismissed", zap.Error(err))
	}
}

// URL returns the last url passed to Navigate, before normalization
func (s *Session) URL() (string, bool) {
	if s.url == nil {
		return "", false
	}
	return *s.url, true
}

// PageBoundingBox returns the rect of the body element, cached until the next navigation
func (s *Session) PageBoundingBox() (Rect, error) {
	if s.pageRect != nil {
		return *s.pageRect, nil
	}
	body, err := s.FindByCSS("body")
	if err != nil {
		return Rect{}, err
	}
	r, err := body.BoundingBox()
	if err != nil {
		return Rect{}, err
	}
	s.pageRect = &r
	return r, nil
}

// PageArea returns the area of PageBoundingBox, cached until the next navigation
func (s *Session) PageArea() (float64, error) {
	if s.pageArea != nil {
		return *s.pageArea, nil
	}
	r, err := s.PageBoundingBox()
	if err != nil {
		return 0, err
	}
	area := r.Area()
	s.pageArea = &area
	return area, nil
}

// PageSource returns the HTML of the current document
func (s *Session) PageSource() (string, error) {
	p, release := s.scripted()
	defer release()

	html, err := p.HTML()
	if err != nil {
		return "", classify(err)
	}
	return html, nil
}

// SourceDocument parses the current page source for offline querying
func (s *Session) SourceDocument() (*goquery.Document, error) {
	html, err := s.PageSource()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page source: %w", err)
	}
	return doc, nil
}

// ViewportRect returns the content area size, excluding browser chrome
func (s *Session) ViewportRect() (Size, error) {
	v, err := s.RunScript(jsViewport)
	if err != nil {
		return Size{}, err
	}
	return sizeFromJSON(v), nil
}

// ViewportArea returns the product of ViewportRect
func (s *Session) ViewportArea() (float64, error) {
	size, err := s.ViewportRect()
	if err != nil {
		return 0, err
	}
	return size.Area(), nil
}

// Domain returns document.domain
func (s *Session) Domain() (string, error) {
	v, err := s.RunScript(jsDomain)
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

// RunScript evaluates a function expression such as `(a, b) => a + b` in the
// current context. Element arguments are passed as DOM nodes.
func (s *Session) RunScript(js string, args ...interface{}) (gson.JSON, error) {
	p, release := s.scripted()
	defer release()

	res, err := p.Eval(js, jsArgs(args)...)
	if err != nil {
		return gson.JSON{}, classify(err)
	}
	return res.Value, nil
}

// RunScriptFile reads a function expression from path and runs it
func (s *Session) RunScriptFile(path string, args ...interface{}) (gson.JSON, error) {
	js, err := os.ReadFile(path)
	if err != nil {
		return gson.JSON{}, fmt.Errorf("read script: %w", err)
	}
	return s.RunScript(string(js), args...)
}

// FindByXPath returns the first node matching xpath, or ErrNotFound
func (s *Session) FindByXPath(xpath string) (*Element, error) {
	el, err := s.locator().ElementX(xpath)
	if err != nil {
		return nil, classify(err)
	}
	return s.wrap(el), nil
}

// FindAllByXPath returns every node matching xpath, possibly none
func (s *Session) FindAllByXPath(xpath string) ([]*Element, error) {
	els, err := s.page.ElementsX(xpath)
	if err != nil {
		return nil, classify(err)
	}
	return wrapAll(els, s.timeout), nil
}

// FindByCSS returns the first node matching selector, or ErrNotFound
func (s *Session) FindByCSS(selector string) (*Element, error) {
	el, err := s.locator().Element(selector)
	if err != nil {
		return nil, classify(err)
	}
	return s.wrap(el), nil
}

// FindAllByCSS returns every node matching selector, possibly none
func (s *Session) FindAllByCSS(selector string) ([]*Element, error) {
	els, err := s.page.Elements(selector)
	if err != nil {
		return nil, classify(err)
	}
	return wrapAll(els, s.timeout), nil
}

// FindByClassName returns the first node carrying the class name, or ErrNotFound
func (s *Session) FindByClassName(name string) (*Element, error) {
	return s.FindByCSS(classSelector(name))
}

// FindAllByClassName returns every node carrying the class name
func (s *Session) FindAllByClassName(name string) ([]*Element, error) {
	return s.FindAllByCSS(classSelector(name))
}

// FindByID returns the node with the given id, or ErrNotFound
func (s *Session) FindByID(id string) (*Element, error) {
	return s.FindByCSS(idSelector(id))
}

// FindAllByID returns every node with the given id
func (s *Session) FindAllByID(id string) ([]*Element, error) {
	return s.FindAllByCSS(idSelector(id))
}

// FindByTagName returns the first node with the tag, or ErrNotFound
func (s *Session) FindByTagName(name string) (*Element, error) {
	return s.FindByCSS(name)
}

// FindAllByTagName returns every node with the tag
func (s *Session) FindAllByTagName(name string) ([]*Element, error) {
	return s.FindAllByCSS(name)
}

// WindowRect returns the browser window position and size
func (s *Session) WindowRect() (Rect, error) {
	b, err := s.root.GetWindow()
	if err != nil {
		return Rect{}, classify(err)
	}
	return Rect{
		X:      float64(intOr(b.Left)),
		Y:      float64(intOr(b.Top)),
		Width:  float64(intOr(b.Width)),
		Height: float64(intOr(b.Height)),
	}, nil
}

// WindowSize returns the outer size of the browser window
func (s *Session) WindowSize() (Size, error) {
	r, err := s.WindowRect()
	if err != nil {
		return Size{}, err
	}
	return Size{Width: r.Width, Height: r.Height}, nil
}

// WindowPosition returns the top-left corner of the browser window
func (s *Session) WindowPosition() (Point, error) {
	r, err := s.WindowRect()
	if err != nil {
		return Point{}, err
	}
	return Point{X: r.X, Y: r.Y}, nil
}

// SetWindowSize resizes the browser window
func (s *Session) SetWindowSize(width, height int) error {
	err := s.root.SetWindow(&proto.BrowserBounds{
		Width:       gson.Int(width),
		Height:      gson.Int(height),
		WindowState: proto.BrowserWindowStateNormal,
	})
	return classify(err)
}

// Fullscreen requests fullscreen and then sleeps wait to let the animation settle
func (s *Session) Fullscreen(wait time.Duration) error {
	err := s.root.SetWindow(&proto.BrowserBounds{
		WindowState: proto.BrowserWindowStateFullscreen,
	})
	if err != nil {
		return classify(err)
	}
	time.Sleep(wait)
	return nil
}

func (s *Session) capture() ([]byte, error) {
	bin, err := s.root.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, classify(err)
	}
	return bin, nil
}

// Screenshot writes a PNG of the viewport to path
func (s *Session) Screenshot(path string) error {
	bin, err := s.capture()
	if err != nil {
		return err
	}
	return utils.OutputFile(path, bin)
}

// ScreenshotImage captures the viewport as a decoded image
func (s *Session) ScreenshotImage() (image.Image, error) {
	bin, err := s.capture()
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(bin))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// ScreenshotWholePage grows the window to the scrollable extent of the document,
// captures the body and restores the previous window size.
func (s *Session) ScreenshotWholePage(path string) error {
	current, err := s.WindowSize()
	if err != nil {
		return err
	}
	extent, err := s.RunScript(jsScrollExtent)
	if err != nil {
		return err
	}

	if err := s.SetWindowSize(extent.Get("width").Int(), extent.Get("height").Int()); err != nil {
		return err
	}
	defer func() {
		if err := s.SetWindowSize(int(current.Width), int(current.Height)); err != nil {
			s.logger.Warn("restoring window size failed", zap.Error(err))
		}
	}()

	body, err := s.FindByTagName("body")
	if err != nil {
		return err
	}
	return body.Screenshot(path)
}

// RelativeSize returns the element area divided by the page area
func (s *Session) RelativeSize(el *Element) (float64, error) {
	area, err := el.Area()
	if err != nil {
		return 0, err
	}
	page, err := s.PageArea()
	if err != nil {
		return 0, err
	}
	if page == 0 {
		return 0, fmt.Errorf("page has no area")
	}
	return area / page, nil
}

// ExceedsWindowFraction reports whether the element area is at least ratio times the window area
func (s *Session) ExceedsWindowFraction(el *Element, ratio float64) (bool, error) {
	window, err := s.WindowSize()
	if err != nil {
		return false, err
	}
	area, err := el.Area()
	if err != nil {
		return false, err
	}
	return area >= ratio*window.Area(), nil
}

// CheckAncestry reports whether ancestor contains child. A node is not its own
// ancestor. Script failures count as false.
func (s *Session) CheckAncestry(child, ancestor *Element) bool {
	if child.Equal(ancestor) {
		return false
	}
	v, err := s.RunScript(jsContains, ancestor, child)
	if err != nil {
		s.logger.Debug("ancestry check failed", zap.Error(err))
		return false
	}
	return v.Bool()
}

// AllDescendantsOf reports whether ancestor contains every element of children
func (s *Session) AllDescendantsOf(ancestor *Element, children []*Element) bool {
	for _, child := range children {
		if !s.CheckAncestry(child, ancestor) {
			return false
		}
	}
	return true
}

// CommonAncestor returns the nearest node containing all elements.
// A single element is its own common ancestor.
func (s *Session) CommonAncestor(elements []*Element) (*Element, error) {
	if len(elements) == 0 {
		s.logger.Error("common ancestor of an empty selection")
		return nil, ErrEmptySelection
	}
	if len(elements) == 1 {
		return elements[0], nil
	}

	candidate, err := elements[0].Parent()
	for err == nil {
		if s.AllDescendantsOf(candidate, elements[1:]) {
			return candidate, nil
		}
		candidate, err = candidate.Parent()
	}
	return nil, fmt.Errorf("%w: %w", ErrNoCommonAncestor, err)
}

// MarkElements sets a CSS border on every element. An empty selection runs no script.
func (s *Session) MarkElements(elements []*Element, style BorderStyle) error {
	for _, el := range elements {
		if _, err := el.eval(jsSetBorder, style.Color, style.Width, style.Style); err != nil {
			return err
		}
	}
	return nil
}

// SetElementText replaces the text content of el
func (s *Session) SetElementText(el *Element, text string) error {
	_, err := el.eval(jsSetText, text)
	return err
}

// DrawRectangleAround inserts a bordered marker into container that encloses
// all elements. An empty selection runs no script.
func (s *Session) DrawRectangleAround(elements []*Element, container *Element, style BorderStyle) error {
	if len(elements) == 0 {
		return nil
	}

	rects := make([]Rect, 0, len(elements))
	for _, el := range elements {
		r, err := el.BoundingBox()
		if err != nil {
			return err
		}
		rects = append(rects, r)
	}
	box, _ := Enclose(rects, markerPadding)

	origin, err := container.BoundingBox()
	if err != nil {
		return err
	}

	_, err = container.eval(jsInsertMarker,
		elements[0], markerTag,
		box.Y-origin.Y, box.X-origin.X,
		box.Width, box.Height,
		style.css(),
	)
	return err
}

// MarkCommonAncestor marks the common ancestor of elements
func (s *Session) MarkCommonAncestor(elements []*Element, style BorderStyle) error {
	if len(elements) == 0 {
		return nil
	}
	ancestor, err := s.CommonAncestor(elements)
	if err != nil {
		return err
	}
	return s.MarkElements([]*Element{ancestor}, style)
}

// SwitchToMainFrame makes the top-level document the execution context
func (s *Session) SwitchToMainFrame() {
	s.page = s.root
}

// SwitchToFrame makes the document of an iframe element the execution context
func (s *Session) SwitchToFrame(el *Element) error {
	frame, err := el.Frame()
	if err != nil {
		return err
	}
	s.page = frame
	return nil
}

func intOr(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
