package session

import (
	"context"

	"scholar/internal/domain/research"
)

type activeKey struct{}

// WithActive binds h to ctx. Two runs with separate contexts never see each
// other's session, unlike a process-wide current directory.
func WithActive(ctx context.Context, h research.Handle) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, activeKey{}, h)
}

// Active returns the session bound to ctx, if any.
func Active(ctx context.Context) (research.Handle, bool) {
	if ctx == nil {
		return research.Handle{}, false
	}
	h, ok := ctx.Value(activeKey{}).(research.Handle)
	return h, ok && !h.IsZero()
}
