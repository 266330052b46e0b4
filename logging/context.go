package logging

import "context"

type debugModeKey struct{}

// EnableDebugMode returns a context under which the CDebug methods log regardless of level.
func EnableDebugMode(ctx context.Context) context.Context {
	return context.WithValue(ctx, debugModeKey{}, true)
}

// IsDebugMode reports whether ctx was returned by EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	enabled, _ := ctx.Value(debugModeKey{}).(bool)
	return enabled
}
