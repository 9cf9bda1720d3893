// Package attrscript wraps github.com/dop251/goja to provide the
// "evaluate-script over context -> value set" capability spec.md 9 asks
// implementations to model scripting as, grounded on the teacher's
// system/tee/script_engine.go gojaScriptEngine. Unlike that engine (which
// targets a sandboxed TEE execution request), this one binds named
// dependency attributes and a resolution-context view directly into a
// fresh goja.Runtime per call, matching spec.md 4.4's Scripted definition
// ("dependency attributes bound by name and the context bound as
// resolutionContext") and spec.md 4.3's Scripted connector.
package attrscript

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// Engine evaluates scripts against a fresh goja.Runtime per call; goja
// runtimes are not safe for concurrent use, so no runtime is held across
// calls (mirrors the teacher's "new runtime per Execute" choice).
type Engine struct {
	timeout time.Duration
}

// New constructs an Engine. timeout bounds each script's wall-clock
// execution (zero disables the bound).
func New(timeout time.Duration) *Engine {
	return &Engine{timeout: timeout}
}

// Result is what a script produced: a map bound to "output" by convention,
// plus any console.log lines captured during execution.
type Result struct {
	Output map[string]interface{}
	Logs   []string
}

// Eval compiles and runs script with bindings injected as named globals; the
// script is expected to assign to a global `output` object (object literal
// or function-returned map) exposing the values it wants the caller to
// read back.
func (e *Engine) Eval(script string, bindings map[string]interface{}) (*Result, error) {
	vm := goja.New()

	var logs []string
	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			logs = append(logs, arg.String())
		}
		return goja.Undefined()
	})
	_ = vm.Set("console", console)

	for name, value := range bindings {
		if err := vm.Set(name, value); err != nil {
			return nil, fmt.Errorf("attrscript: bind %q: %w", name, err)
		}
	}

	if e.timeout > 0 {
		timer := time.AfterFunc(e.timeout, func() {
			vm.Interrupt("attrscript: execution timed out")
		})
		defer timer.Stop()
	}

	val, err := vm.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("attrscript: execute: %w", err)
	}

	output := extractOutput(vm, val)
	return &Result{Output: output, Logs: logs}, nil
}

// extractOutput prefers an explicit global named "output"; failing that, it
// falls back to the script's own final expression value, so a script that
// is just a single object-literal expression still works without
// boilerplate.
func extractOutput(vm *goja.Runtime, last goja.Value) map[string]interface{} {
	if outputVal := vm.Get("output"); outputVal != nil && !goja.IsUndefined(outputVal) && !goja.IsNull(outputVal) {
		if m, ok := outputVal.Export().(map[string]interface{}); ok {
			return m
		}
	}
	if last != nil && !goja.IsUndefined(last) && !goja.IsNull(last) {
		if m, ok := last.Export().(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}
