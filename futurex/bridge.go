package futurex

// BridgeCallback starts a callback style operation and returns a future
// that completes when the operation invokes its callback. If op itself
// returns an error the callback is never expected and the future is
// rejected with that error.
//
// The callback may be invoked more than once; only the first invocation
// has any effect.
func BridgeCallback[T any](op func(cb func(T, error)) error) *Future[T] {
	f := NewFuture[T]()

	err := op(func(val T, err error) {
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(val)
	})
	if err != nil {
		f.Reject(err)
	}

	return f
}
