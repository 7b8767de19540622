/*
Package engine is the script-execution core: it owns one goja runtime per
client session, runs submitted commands to completion on a dedicated
worker goroutine, and bridges that synchronous execution back to
asynchronous callers through one-shot pending executions.

# Overview

Sessions are the unit of isolation. Each session gets:

  - A fresh execution context replayed from the shared, immutable
    bootstrap Environment
  - A dedicated worker goroutine that is the only accessor of that
    context, ever
  - A bounded FIFO command queue; submission order is execution order

State loaded into one session (library functions, globals) is invisible
to every other session; no shared reference exists by construction.

# Command lifecycle

	Session.Run(cmd)      enqueue, returns *Pending immediately
	worker                dequeues, executes against its private context
	Pending               resolves exactly once: Ok(JSON) or Error(text)
	Session.Await         blocks the caller until resolution or timeout

Errors out of the engine (compile failures, missing globals, non-callable
targets, serialization failures) become error outcomes, never panics
across the API boundary. A panic inside the engine is captured as a
session fault that tears down only the owning session.

# Timeouts

The worker cannot preempt a script once started, so Await enforces the
budget from the outside: on expiry the pending resolves with a timeout
error, the running script is interrupted, and the session is killed
rather than reused.

# Usage

	env, err := engine.BuildEnvironment()
	if err != nil {
		// fatal: do not serve without a valid environment
	}
	sess := engine.NewSession(env, engine.Options{})
	defer sess.Close()

	p := sess.Run(engine.Translate(1, "1+1", nil))
	out := sess.Await(ctx, p, 5*time.Second)
*/
package engine
