package bboltx

// Must panics if err is non-nil.
//
// The panic carries err back to the nearest deferred Recover(), which allows
// BoltDB calls to be written one after another without checking each error.
func Must(err error) {
	if err != nil {
		panic(failure{err})
	}
}

// failure is the panic value raised by Must().
type failure struct {
	cause error
}

// Recover assigns the error passed to Must() to *err if the current goroutine
// is panicking because of a call to Must(). Any other panic is re-raised.
//
// It must be called directly by a deferred statement.
func Recover(err *error) {
	v := recover()
	if v == nil {
		return
	}

	f, ok := v.(failure)
	if !ok {
		panic(v)
	}

	*err = f.cause
}
