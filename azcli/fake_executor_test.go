package azcli

import "context"

// fakeExecutor records every command line and answers from a scripted handler.
type fakeExecutor struct {
	calls []string
	fn    func(commandLine string, opts Options) (Result, error)
}

func (f *fakeExecutor) Run(_ context.Context, commandLine string, opts Options) (Result, error) {
	f.calls = append(f.calls, commandLine)
	if f.fn == nil {
		return Result{}, nil
	}
	return f.fn(commandLine, opts)
}
