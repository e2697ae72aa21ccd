package script

import (
	"fmt"
	"time"

	"github.com/robertkrimen/otto"
)

type ottoVM struct {
	vm *otto.Otto
}

func newOttoVM(src string) (*ottoVM, error) {
	vm := otto.New()
	console, err := vm.Object(`({})`)
	if err != nil {
		return nil, err
	}
	_ = console.Set("log", func(call otto.FunctionCall) otto.Value {
		args := make([]any, 0, len(call.ArgumentList))
		for _, a := range call.ArgumentList {
			args = append(args, a.String())
		}
		consoleLog(args...)
		return otto.UndefinedValue()
	})
	_ = vm.Set("console", console)

	if _, err := vm.Run(src); err != nil {
		return nil, fmt.Errorf("run script in otto: %v", err)
	}
	fn, err := vm.Get(FuncName)
	if err != nil || !fn.IsFunction() {
		return nil, fmt.Errorf("%s function not found in script", FuncName)
	}
	vm.Interrupt = make(chan func(), 1)
	return &ottoVM{vm: vm}, nil
}

func (o *ottoVM) call(t string, timeout time.Duration) (out string, ok bool, err error) {
	timer := time.AfterFunc(timeout, func() {
		select {
		case o.vm.Interrupt <- func() { panic(errTimeout) }:
		default:
		}
	})
	defer func() {
		timer.Stop()
		// drop an interrupt that fired after the call returned
		select {
		case <-o.vm.Interrupt:
		default:
		}
		if r := recover(); r != nil {
			if r == errTimeout {
				out, ok, err = "", false, errTimeout
				return
			}
			panic(r)
		}
	}()

	value, err := o.vm.Call(FuncName, nil, t)
	if err != nil {
		return "", false, fmt.Errorf("failed to call %s: %v", FuncName, err)
	}
	if value.IsUndefined() || value.IsNull() {
		return "", false, nil
	}
	if !value.IsString() {
		return "", false, fmt.Errorf("%s returned %s, want string", FuncName, value.Class())
	}
	s, err := value.ToString()
	if err != nil {
		return "", false, fmt.Errorf("%s did not return a string: %v", FuncName, err)
	}
	return s, true, nil
}
