package driver

import (
	"runtime"
	"time"

	"github.com/v0xg/domlens/internal/wrapper"
)

func runtimeGOOS() string {
	return runtime.GOOS
}

func wrapperOpts() wrapper.NavigateOptions {
	return wrapper.NavigateOptions{Timeout: 10 * time.Second}
}
