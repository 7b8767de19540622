package engine

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/fortunadb/ateles/internal/engine/bootstrap"
)

// Environment is the immutable pre-built bootstrap state shared read-only
// by every session. The bootstrap library is compiled exactly once per
// process; each worker replays the compiled program into its own fresh
// runtime, so sessions never re-parse the library and never share heap.
type Environment struct {
	program *goja.Program
}

// BuildEnvironment compiles the bootstrap library and proves it runs by
// executing it in a throwaway runtime. Any compile or runtime failure here
// is fatal to the caller: the server must not start serving without a
// valid environment.
func BuildEnvironment() (*Environment, error) {
	prog, err := goja.Compile("ateles_bootstrap.js", bootstrap.Source(), false)
	if err != nil {
		return nil, fmt.Errorf("bootstrap compile failed: %w", err)
	}

	probe := goja.New()
	if _, err := probe.RunProgram(prog); err != nil {
		return nil, fmt.Errorf("bootstrap execution failed: %w", err)
	}

	return &Environment{program: prog}, nil
}
