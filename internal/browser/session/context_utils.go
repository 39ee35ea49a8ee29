// internal/browser/session/context_utils.go
package session

import (
	"context"
	"time"
)

// CombineContext derives a context from tabCtx, which carries the chromedp
// target, that is also cancelled when opCtx ends. A positive timeout bounds
// the result further.
func CombineContext(tabCtx, opCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancelCause(tabCtx)
	stop := context.AfterFunc(opCtx, func() { cancel(context.Cause(opCtx)) })

	if timeout <= 0 {
		return combined, func() {
			stop()
			cancel(context.Canceled)
		}
	}
	bounded, cancelTimeout := context.WithTimeout(combined, timeout)
	return bounded, func() {
		cancelTimeout()
		stop()
		cancel(context.Canceled)
	}
}
