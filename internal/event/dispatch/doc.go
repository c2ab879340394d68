// Package dispatch runs plugin-supplied callbacks inside a failure boundary.
//
// The Executor invokes a callback on the caller's goroutine, recovers from
// panics, and reports the outcome as a Result. The event bus uses it for
// every handler invocation and the transform pipeline uses it for every
// contribution step, so that one defective plugin never unwinds into the
// reader.
//
// # Usage
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithPanicHandler(func(v any, stack []byte) {
//	        log.Printf("panic in callback: %v\n%s", v, stack)
//	    }),
//	)
//	result := exec.Execute(ctx, func(ctx context.Context) error {
//	    return handler(ctx, evt)
//	})
//	if err := result.Failure(); err != nil {
//	    // report
//	}
package dispatch
