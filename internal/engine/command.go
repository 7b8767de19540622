package engine

// Operation identifies the kind of work a Command carries.
type Operation int

const (
	OpRewrite Operation = iota
	OpEval
	OpCall
	OpExit
)

// String returns the operation name for logs and metrics labels.
func (op Operation) String() string {
	switch op {
	case OpRewrite:
		return "rewrite"
	case OpEval:
		return "eval"
	case OpCall:
		return "call"
	case OpExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Command is one unit of work submitted to a session. For OpEval the
// payload is script source; for OpCall and OpRewrite it is the name of a
// global function and Args are positional values passed as raw strings,
// never parsed as JSON.
type Command struct {
	Op      Operation
	Payload string
	Args    []string
}

// Translate maps wire-level request fields to a Command. Unrecognized
// action codes fall through to OpExit rather than a decode error; the
// protocol depends on this mapping staying exactly as is.
func Translate(action int32, script string, args []string) Command {
	var op Operation
	switch action {
	case 0:
		op = OpRewrite
	case 1:
		op = OpEval
	case 2:
		op = OpCall
	default:
		op = OpExit
	}
	return Command{Op: op, Payload: script, Args: args}
}
