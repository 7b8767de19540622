package engine

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// worker owns one execution context for one session's full lifetime and is
// the only goroutine that ever touches it. It dequeues commands strictly
// in FIFO order and resolves each pending exactly once; the loop ends when
// the queue closes.
type worker struct {
	session      *Session
	env          *Environment
	maxCallStack int
	logger       *zap.Logger
	recorder     Recorder
}

func (w *worker) run() {
	defer w.recorder.SessionEnded()

	iso, err := newIsolate(w.env, w.maxCallStack)
	if err != nil {
		w.logger.Error("failed to create execution context", zap.Error(err))
		w.session.Kill("context creation failed")
		for p := range w.session.queue {
			p.resolve(Outcome{Text: err.Error()})
		}
		return
	}
	w.session.iso.Store(iso)
	w.logger.Debug("execution context ready")

	for p := range w.session.queue {
		if w.session.killed.Load() {
			p.resolve(Outcome{Text: ErrSessionClosed.Error()})
			continue
		}
		if fault := w.execute(iso, p); fault {
			// A fault poisons only this session; queued commands drain with
			// a closed error and every other session keeps running.
			w.session.Kill("session fault")
		}
	}
	w.logger.Debug("session ended")
}

// execute runs one command and resolves its pending. A panic out of the
// engine is captured as a session fault rather than crashing the process.
func (w *worker) execute(iso *isolate, p *Pending) (fault bool) {
	defer func() {
		if r := recover(); r != nil {
			fault = true
			w.recorder.SessionFaulted()
			w.logger.Error("session fault", zap.Any("panic", r),
				zap.String("operation", p.Command().Op.String()))
			p.resolve(Outcome{Text: fmt.Sprintf("session fault: %v", r)})
		}
	}()

	start := time.Now()
	out := w.process(iso, p.Command())
	p.resolve(out)

	elapsed := time.Since(start)
	w.recorder.CommandExecuted(p.Command().Op.String(), out.OK, elapsed)
	w.logger.Debug("command executed",
		zap.String("operation", p.Command().Op.String()),
		zap.Bool("ok", out.OK),
		zap.Duration("duration", elapsed))
	return false
}

func (w *worker) process(iso *isolate, cmd Command) Outcome {
	switch cmd.Op {
	case OpExit:
		// Sentinel outcome only; the loop keeps serving until the queue
		// closes. One failed call is not the end of the session.
		return Outcome{Text: "exiting"}
	case OpEval:
		val, err := iso.compileAndRun(cmd.Payload)
		return w.finish(iso, val, err)
	case OpCall, OpRewrite:
		val, err := iso.lookupAndInvoke(cmd.Payload, cmd.Args)
		return w.finish(iso, val, err)
	default:
		return Outcome{Text: fmt.Sprintf("unknown operation %d", cmd.Op)}
	}
}

func (w *worker) finish(iso *isolate, val goja.Value, err error) Outcome {
	if err != nil {
		return Outcome{Text: err.Error()}
	}
	text, err := iso.serializeJSON(val)
	if err != nil {
		return Outcome{Text: err.Error()}
	}
	return Outcome{OK: true, Text: text}
}
