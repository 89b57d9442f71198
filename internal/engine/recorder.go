package engine

import (
	"github.com/roach88/pickflow/internal/ir"
	"github.com/roach88/pickflow/internal/mode"
	"github.com/roach88/pickflow/internal/service"
)

// recorder turns session lifecycle callbacks and mode transitions into
// queued journal events.
type recorder struct {
	queue *eventQueue
}

func (r *recorder) SessionStarted(ctx *service.Context, target string) {
	r.queue.Enqueue(pending{
		Session: ctx.Session,
		Kind:    ir.KindSessionStarted,
		Payload: ir.Obj(
			ir.P("workflow", ir.String(ctx.Workflow)),
			ir.P("target", ir.String(target)),
		),
	})
}

func (r *recorder) NodeRan(ctx *service.Context, node string, err error) {
	result, msg := outcome(err)
	payload := ir.Obj(
		ir.P("node", ir.String(node)),
		ir.P("outcome", ir.String(result)),
	)
	if msg != "" {
		payload["error"] = ir.String(msg)
	}
	r.queue.Enqueue(pending{Session: ctx.Session, Kind: ir.KindNodeRan, Payload: payload})
}

func (r *recorder) OrderResolved(ctx *service.Context, branch string) {
	r.queue.Enqueue(pending{
		Session: ctx.Session,
		Kind:    ir.KindOrderResolved,
		Payload: ir.Obj(ir.P("branch", ir.String(branch))),
	})
}

func (r *recorder) SessionEnded(ctx *service.Context, exit service.Exit) {
	payload := ir.Obj(ir.P("exit", ir.String(exit.Reason.String())))
	if exit.Err != nil {
		payload["error"] = ir.String(exit.Err.Error())
		if code := service.Code(exit.Err); code != "" {
			payload["code"] = ir.String(string(code))
		}
	}
	r.queue.Enqueue(pending{Session: ctx.Session, Kind: ir.KindSessionEnded, Payload: payload})
}

func (r *recorder) transition(t mode.Transition) {
	r.queue.Enqueue(pending{
		Kind: ir.KindModeChanged,
		Payload: ir.Obj(
			ir.P("from", ir.String(t.From.String())),
			ir.P("to", ir.String(t.To.String())),
			ir.P("reason", ir.String(t.Reason)),
		),
	})
}

// outcome classifies the error a node returned. The message is empty for
// control-flow signals.
func outcome(err error) (string, string) {
	switch {
	case err == nil:
		return "ok", ""
	case service.IsCancelled(err):
		return "cancelled", ""
	case service.IsTerminate(err):
		return "terminate", ""
	case service.IsRecoverable(err):
		return "recoverable", err.Error()
	case service.IsWiringError(err):
		return string(service.Code(err)), err.Error()
	}
	return "error", err.Error()
}
