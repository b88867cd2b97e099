package httpapi

import (
	"context"
	"net/http"
)

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// Values are taken from b. The returned cancel func must be called to release
// the goroutine when the handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(b))
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// workContext derives the context a handler runs its service call under:
// the request joined with the server base context, bounded by the request
// timeout when one is set.
func workContext(r *http.Request) (context.Context, context.CancelFunc) {
	joined, cancelJoin := joinContexts(serverBaseCtx, r.Context())
	d := requestTimeoutDuration()
	if d <= 0 {
		return joined, cancelJoin
	}
	ctx, cancel := context.WithTimeout(joined, d)
	return ctx, func() {
		cancel()
		cancelJoin()
	}
}
