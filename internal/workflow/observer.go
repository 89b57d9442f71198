package workflow

import (
	"github.com/roach88/pickflow/internal/service"
)

// Observer receives session lifecycle events. Calls arrive in tick order on
// the engine's goroutine.
type Observer interface {
	SessionStarted(ctx *service.Context, target string)
	NodeRan(ctx *service.Context, node string, err error)
	OrderResolved(ctx *service.Context, branch string)
	SessionEnded(ctx *service.Context, exit service.Exit)
}

// NoopObserver ignores everything.
type NoopObserver struct{}

func (NoopObserver) SessionStarted(*service.Context, string)    {}
func (NoopObserver) NodeRan(*service.Context, string, error)     {}
func (NoopObserver) OrderResolved(*service.Context, string)      {}
func (NoopObserver) SessionEnded(*service.Context, service.Exit) {}

// MultiObserver fans events out in slice order.
type MultiObserver []Observer

func (m MultiObserver) SessionStarted(ctx *service.Context, target string) {
	for _, o := range m {
		o.SessionStarted(ctx, target)
	}
}

func (m MultiObserver) NodeRan(ctx *service.Context, node string, err error) {
	for _, o := range m {
		o.NodeRan(ctx, node, err)
	}
}

func (m MultiObserver) OrderResolved(ctx *service.Context, branch string) {
	for _, o := range m {
		o.OrderResolved(ctx, branch)
	}
}

func (m MultiObserver) SessionEnded(ctx *service.Context, exit service.Exit) {
	for _, o := range m {
		o.SessionEnded(ctx, exit)
	}
}

// LogObserver writes lifecycle events to the context logger at debug level.
type LogObserver struct{}

func (LogObserver) SessionStarted(ctx *service.Context, target string) {
	ctx.Log().Debug("session started", "target", target)
}

func (LogObserver) NodeRan(ctx *service.Context, node string, err error) {
	if err != nil {
		ctx.Log().Debug("node ran", "node", node, "error", err)
		return
	}
	ctx.Log().Debug("node ran", "node", node)
}

func (LogObserver) OrderResolved(ctx *service.Context, branch string) {
	ctx.Log().Debug("order resolved", "branch", branch)
}

func (LogObserver) SessionEnded(ctx *service.Context, exit service.Exit) {
	ctx.Log().Debug("session ended", "exit", exit.String())
}
