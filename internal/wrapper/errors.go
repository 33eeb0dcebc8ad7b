package wrapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
)

var (
	// ErrNotFound is returned by singular locate calls that match nothing
	ErrNotFound = errors.New("element not found")
	// ErrTimeout is returned when the browser did not answer in time
	ErrTimeout = errors.New("browser operation timed out")
	// ErrConnectionLost is returned when the devtools connection is gone
	ErrConnectionLost = errors.New("browser connection lost")
	// ErrScript is returned when an injected script throws or the protocol rejects a call
	ErrScript = errors.New("script evaluation failed")
	// ErrEmptySelection is returned by operations that need at least one element
	ErrEmptySelection = errors.New("empty element selection")
	// ErrNoCommonAncestor is returned when the parent walk reaches the document root
	ErrNoCommonAncestor = errors.New("no common ancestor")
)

// NavigationError describes a failed Navigate call
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("%s failed to load: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// classify maps rod, cdp and context errors onto the package sentinels.
// The original error stays in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		notFound   *rod.ElementNotFoundError
		notElement *rod.ExpectElementError
		evalErr    *rod.EvalError
		navErr     *rod.NavigationError
		cdpErr     *cdp.Error
	)

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTimeout), errors.Is(err, ErrConnectionLost),
		errors.Is(err, ErrScript), errors.Is(err, ErrEmptySelection), errors.Is(err, ErrNoCommonAncestor):
		return err
	case errors.As(err, &notFound), errors.As(err, &notElement):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled), errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	case errors.As(err, &navErr):
		return err
	case errors.As(err, &evalErr), errors.As(err, &cdpErr):
		return fmt.Errorf("%w: %w", ErrScript, err)
	}
	return err
}
