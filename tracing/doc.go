// Package tracing wraps OpenTelemetry span management behind a small helper
// API so the engine's facade operations can be instrumented without every
// package importing the otel SDK directly.
package tracing
