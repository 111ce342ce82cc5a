package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Service
	FieldService = "service"

	// Records and search
	FieldRecordID = "record_id"
	FieldQuery    = "query"
	FieldCacheKey = "cache_key"
	FieldFilter   = "filter_type"
	FieldCount    = "count"

	// Event bus
	FieldChannel = "channel"
	FieldEvent   = "event_type"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
