package engine

import (
	"fmt"

	"github.com/dop251/goja"
)

// nullSentinel is what an execution producing no value serializes to.
// The protocol has always reported "null" for undefined results; clients
// depend on it.
const nullSentinel = "null"

// isolate wraps one goja runtime. It is owned by exactly one worker and
// must only be touched from that worker's goroutine; the single exception
// is interrupt, which goja allows from any goroutine.
type isolate struct {
	vm        *goja.Runtime
	stringify goja.Callable
}

// newIsolate replays the environment's compiled bootstrap into a fresh
// runtime, giving the session its own private copy of the library state.
func newIsolate(env *Environment, maxCallStack int) (*isolate, error) {
	vm := goja.New()
	if maxCallStack > 0 {
		vm.SetMaxCallStackSize(maxCallStack)
	}
	if _, err := vm.RunProgram(env.program); err != nil {
		return nil, fmt.Errorf("bootstrap replay failed: %w", err)
	}

	jsonObj := vm.Get("JSON")
	if jsonObj == nil {
		return nil, fmt.Errorf("runtime is missing the JSON global")
	}
	stringify, ok := goja.AssertFunction(jsonObj.ToObject(vm).Get("stringify"))
	if !ok {
		return nil, fmt.Errorf("JSON.stringify is not callable")
	}

	return &isolate{vm: vm, stringify: stringify}, nil
}

// compileAndRun evaluates source as a program in the isolate's context.
func (iso *isolate) compileAndRun(src string) (goja.Value, error) {
	return iso.vm.RunString(src)
}

// lookupAndInvoke resolves name in the global scope and calls it with args.
// Each argument is passed to the function as a plain string value; callers
// that want structured arguments pre-encode them inside the string.
func (iso *isolate) lookupAndInvoke(name string, args []string) (goja.Value, error) {
	target := iso.vm.GlobalObject().Get(name)
	if target == nil || goja.IsUndefined(target) || goja.IsNull(target) {
		return nil, fmt.Errorf("%s is not defined", name)
	}
	fn, ok := goja.AssertFunction(target)
	if !ok {
		return nil, fmt.Errorf("%s is not a function", name)
	}

	vals := make([]goja.Value, len(args))
	for i, arg := range args {
		vals[i] = iso.vm.ToValue(arg)
	}
	return fn(iso.vm.GlobalObject(), vals...)
}

// serializeJSON renders a result value as JSON text. Undefined results
// normalize to the null sentinel.
func (iso *isolate) serializeJSON(val goja.Value) (string, error) {
	if val == nil || goja.IsUndefined(val) {
		return nullSentinel, nil
	}
	out, err := iso.stringify(goja.Undefined(), val)
	if err != nil {
		return "", fmt.Errorf("result is not serializable: %w", err)
	}
	if out == nil || goja.IsUndefined(out) {
		return nullSentinel, nil
	}
	return out.String(), nil
}

// interrupt aborts the currently running script, if any. Safe to call from
// any goroutine; the runtime is not reusable afterwards without a clear,
// and killed sessions never clear it.
func (iso *isolate) interrupt(reason string) {
	iso.vm.Interrupt(reason)
}
