package wrapper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"
	"github.com/ysmood/gson"
)

// Element wraps one DOM node of the page. It never refers back to the Session
// that produced it.
type Element struct {
	el      *rod.Element
	timeout time.Duration

	parent  *Element
	styles  map[string]string
	backend proto.DOMBackendNodeID
}

func newElement(el *rod.Element, timeout time.Duration) *Element {
	return &Element{
		el:      el,
		timeout: timeout,
		styles:  map[string]string{},
	}
}

func wrapAll(els rod.Elements, timeout time.Duration) []*Element {
	result := make([]*Element, 0, len(els))
	for _, el := range els {
		result = append(result, newElement(el, timeout))
	}
	return result
}

// Raw returns the underlying rod element
func (e *Element) Raw() *rod.Element {
	return e.el
}

func (e *Element) String() string {
	return fmt.Sprintf("Element(%s)", e.Key())
}

// scripted returns the handle used for script and protocol calls. Locate calls
// use e.el directly so found elements do not inherit a deadline.
func (e *Element) scripted() (*rod.Element, func()) {
	if e.timeout > 0 {
		el := e.el.Timeout(e.timeout)
		return el, func() { el.CancelTimeout() }
	}
	return e.el, func() {}
}

func (e *Element) eval(js string, args ...interface{}) (gson.JSON, error) {
	el, release := e.scripted()
	defer release()

	res, err := el.Eval(js, jsArgs(args)...)
	if err != nil {
		return gson.JSON{}, classify(err)
	}
	return res.Value, nil
}

// FindByXPath returns the first node in this subtree matching xpath
func (e *Element) FindByXPath(xpath string) (*Element, error) {
	el, err := e.el.Sleeper(rod.NotFoundSleeper).ElementX(xpath)
	if err != nil {
		return nil, classify(err)
	}
	return newElement(el, e.timeout), nil
}

// FindAllByXPath returns every node in this subtree matching xpath, in document order
func (e *Element) FindAllByXPath(xpath string) ([]*Element, error) {
	els, err := e.el.ElementsX(xpath)
	if err != nil {
		return nil, classify(err)
	}
	return wrapAll(els, e.timeout), nil
}

// FindByCSS returns the first node in this subtree matching selector
func (e *Element) FindByCSS(selector string) (*Element, error) {
	el, err := e.el.Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		return nil, classify(err)
	}
	return newElement(el, e.timeout), nil
}

// FindAllByCSS returns every node in this subtree matching selector
func (e *Element) FindAllByCSS(selector string) ([]*Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, classify(err)
	}
	return wrapAll(els, e.timeout), nil
}

// FindByClassName returns the first node in this subtree carrying class name
func (e *Element) FindByClassName(name string) (*Element, error) {
	return e.FindByCSS(classSelector(name))
}

// FindAllByClassName returns every node in this subtree carrying class name
func (e *Element) FindAllByClassName(name string) ([]*Element, error) {
	return e.FindAllByCSS(classSelector(name))
}

// Attribute returns the named attribute, or nil when the node does not have it
func (e *Element) Attribute(name string) (*string, error) {
	el, release := e.scripted()
	defer release()

	v, err := el.Attribute(name)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

// CSSProperty returns the computed value of a CSS property
func (e *Element) CSSProperty(name string) (string, error) {
	v, err := e.eval(jsComputedStyle, name)
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

// BoundingBox queries the node's rect in document coordinates. It is never cached.
func (e *Element) BoundingBox() (Rect, error) {
	v, err := e.eval(jsRect)
	if err != nil {
		return Rect{}, err
	}
	return rectFromJSON(v), nil
}

// Area returns height x width of the current bounding box
func (e *Element) Area() (float64, error) {
	r, err := e.BoundingBox()
	if err != nil {
		return 0, err
	}
	return r.Area(), nil
}

// HasExtent reports whether the node is wider or taller than zero
func (e *Element) HasExtent() (bool, error) {
	r, err := e.BoundingBox()
	if err != nil {
		return false, err
	}
	return r.HasExtent(), nil
}

// Parent returns the parent node. It is resolved once per Element.
func (e *Element) Parent() (*Element, error) {
	if e.parent != nil {
		return e.parent, nil
	}
	p, err := e.el.Parent()
	if err != nil {
		return nil, classify(err)
	}
	e.parent = newElement(p, e.timeout)
	return e.parent, nil
}

// Children returns the direct child elements in document order
func (e *Element) Children() ([]*Element, error) {
	return e.FindAllByXPath("./*")
}

// TagName returns the lower-cased tag name
func (e *Element) TagName() (string, error) {
	v, err := e.eval(jsTagName)
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

// Text returns the trimmed rendered text. Empty inputs fall back to their value.
func (e *Element) Text() (string, error) {
	v, err := e.eval(jsInnerText)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(v.Str())
	if text != "" {
		return text, nil
	}

	tag, err := e.TagName()
	if err != nil {
		return "", err
	}
	if tag == "input" {
		el, release := e.scripted()
		defer release()
		if value, err := el.Property("value"); err == nil && !value.Nil() {
			text = strings.TrimSpace(value.Str())
		}
	}
	return text, nil
}

// Styles returns the caller-managed annotations attached to this wrapper
func (e *Element) Styles() map[string]string {
	return e.styles
}

// SetStyles replaces the caller-managed annotations
func (e *Element) SetStyles(styles map[string]string) {
	e.styles = styles
}

// Displayed reports whether the browser considers the node visible
func (e *Element) Displayed() (bool, error) {
	el, release := e.scripted()
	defer release()

	ok, err := el.Visible()
	if err != nil {
		return false, classify(err)
	}
	return ok, nil
}

// Screenshot writes a PNG of this node to path
func (e *Element) Screenshot(path string) error {
	el, release := e.scripted()
	defer release()

	bin, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return classify(err)
	}
	return utils.OutputFile(path, bin)
}

// VisibleOrSized reports whether the node is plausibly visible, see Rect.VisibleOrSized
func (e *Element) VisibleOrSized() (bool, error) {
	r, err := e.BoundingBox()
	if err != nil {
		return false, err
	}
	return r.VisibleOrSized(), nil
}

// VisuallyContains reports whether other's box lies inside this node's box
func (e *Element) VisuallyContains(other *Element) (bool, error) {
	outer, err := e.BoundingBox()
	if err != nil {
		return false, err
	}
	inner, err := other.BoundingBox()
	if err != nil {
		return false, err
	}
	return outer.Contains(inner), nil
}

// Frame returns the document of an iframe element
func (e *Element) Frame() (*rod.Page, error) {
	p, err := e.el.Frame()
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

// Key identifies the underlying DOM node. Two wrappers of the same node share a key.
func (e *Element) Key() string {
	if e.backend == 0 {
		el, release := e.scripted()
		if node, err := el.Describe(0, false); err == nil {
			e.backend = node.BackendNodeID
		}
		release()
	}
	if e.backend != 0 {
		return "node-" + strconv.Itoa(int(e.backend))
	}
	return "object-" + string(e.el.Object.ObjectID)
}

// Equal reports whether both wrappers refer to the same DOM node
func (e *Element) Equal(other *Element) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e == other || e.el == other.el {
		return true
	}
	return e.Key() == other.Key()
}

func rectFromJSON(v gson.JSON) Rect {
	return Rect{
		X:      v.Get("x").Num(),
		Y:      v.Get("y").Num(),
		Width:  v.Get("width").Num(),
		Height: v.Get("height").Num(),
	}
}

func sizeFromJSON(v gson.JSON) Size {
	return Size{
		Width:  v.Get("width").Num(),
		Height: v.Get("height").Num(),
	}
}

// jsArgs swaps Elements for their remote object handles
func jsArgs(args []interface{}) []interface{} {
	out := make([]interface{}, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case *Element:
			out[i] = v.el.Object
		case *rod.Element:
			out[i] = v.Object
		default:
			out[i] = arg
		}
	}
	return out
}

func cssString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func classSelector(name string) string {
	return "[class~=" + cssString(name) + "]"
}

func idSelector(id string) string {
	return "[id=" + cssString(id) + "]"
}
