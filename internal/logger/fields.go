package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context through a pipeline invocation or request.
const (
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"
	FieldSource    = "source"
	FieldComponent = "component"
	FieldAttempt   = "attempt"
)

// Metric fields, attached per log line for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldStatus     = "status"
	FieldProcessed  = "processed"
	FieldInserted   = "inserted"
	FieldUpdated    = "updated"
	FieldFailed     = "failed"
)
