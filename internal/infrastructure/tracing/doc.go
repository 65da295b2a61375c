/*
Package tracing records timed spans for requests and background work.

# Overview

A Tracer hands finished spans to a buffered collector goroutine that logs
them with zap. Spans carry a trace ID shared by everything done on behalf of
one request, and a parent span ID when nested.

# Usage

	tracer := tracing.New("launcherd", logger)
	defer tracer.Close()

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span
	err := tracer.Trace(ctx, "registry.rescan", func(ctx context.Context) error {
		_, err := catalog.Scan(ctx)
		return err
	})

# Trace Format

Trace context travels in HTTP headers:
  - X-Trace-ID: identifier for the entire request flow
  - X-Span-ID: identifier for the current operation

Spans faster than the slow threshold log at debug; errors always log at
error.
*/
package tracing
