// Package tracing links instrumented operations to distributed traces.
//
// A Tracer starts one Span per instrumented operation and makes it the
// active span in the returned context. The span's Link (trace id, span id,
// parent span id) is copied into the emitted event.
//
// Two tracers are provided:
//
//   - ContextTracer stores ids in context.Context and needs no backend.
//   - OTelTracer forwards to an OpenTelemetry TracerProvider.
//
// Without a tracer, instrumentation still works and events simply carry no
// trace fields.
package tracing
