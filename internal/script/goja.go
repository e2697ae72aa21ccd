package script

import (
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/ytget/blackout/internal/logger"
)

type gojaVM struct {
	vm *goja.Runtime
	fn goja.Callable
}

func newGojaVM(name, src string) (*gojaVM, error) {
	vm := goja.New()
	_ = vm.Set("console", map[string]any{
		"log": consoleLog,
	})
	if _, err := vm.RunScript(name, src); err != nil {
		return nil, fmt.Errorf("run script: %w", err)
	}
	fn, ok := goja.AssertFunction(vm.Get(FuncName))
	if !ok {
		return nil, fmt.Errorf("%s function not found in script", FuncName)
	}
	return &gojaVM{vm: vm, fn: fn}, nil
}

func (g *gojaVM) call(t string, timeout time.Duration) (string, bool, error) {
	timer := time.AfterFunc(timeout, func() { g.vm.Interrupt(errTimeout) })
	defer func() {
		timer.Stop()
		g.vm.ClearInterrupt()
	}()

	res, err := g.fn(goja.Undefined(), g.vm.ToValue(t))
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return "", false, errTimeout
		}
		return "", false, fmt.Errorf("%s error: %w", FuncName, err)
	}
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return "", false, nil
	}
	if s, ok := res.Export().(string); ok {
		return s, true, nil
	}
	return "", false, fmt.Errorf("%s returned %s, want string", FuncName, res.ExportType())
}

func consoleLog(args ...any) {
	logger.WithComponent(logger.ComponentScript).Debug("console.log", map[string]interface{}{
		"args": fmt.Sprint(args...),
	})
}
