package panichandler

import (
	"log/slog"
	"runtime/debug"

	"github.com/hydraide/sentinel/app/paniclogger"
)

// Recover logs a panic with its stack trace and stops it from propagating.
// Usage: defer panichandler.Recover("context description")
func Recover(context string) {
	if r := recover(); r != nil {
		report(context, r)
	}
}

// RecoverWithCallback behaves like Recover and runs callback when a panic was caught.
// Usage: defer panichandler.RecoverWithCallback("context", func() { ... })
func RecoverWithCallback(context string, callback func()) {
	if r := recover(); r != nil {
		report(context, r)
		runCallback(context, callback)
	}
}

// SafeGo starts fn in a goroutine. A panic inside fn is logged and does not
// crash the process.
func SafeGo(context string, fn func()) {
	SafeGoWithCallback(context, fn, nil)
}

// SafeGoWithCallback is SafeGo with a callback that runs ONLY if fn panicked.
func SafeGoWithCallback(context string, fn func(), callback func()) {
	go func() {
		defer RecoverWithCallback("goroutine: "+context, callback)
		fn()
	}()
}

func report(context string, r any) {
	stackTrace := string(debug.Stack())

	paniclogger.LogPanic(context, r, stackTrace)

	slog.Error("caught panic",
		slog.String("context", context),
		slog.Any("error", r),
		slog.String("stack", stackTrace),
	)
}

func runCallback(context string, callback func()) {
	if callback == nil {
		return
	}
	defer func() {
		if r2 := recover(); r2 != nil {
			slog.Error("panic in panic callback",
				slog.String("original_context", context),
				slog.Any("callback_error", r2),
			)
		}
	}()
	callback()
}
