package errors

// ErrorCode identifies a failure class independently of its message.
type ErrorCode int

const (
	ErrorCode_UNKNOWN ErrorCode = iota
	ErrorCode_INTERNAL
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_NOT_FOUND

	// Delivery pipeline
	ErrorCode_EMPTY_CAPTURE
	ErrorCode_PERSIST_FAILURE
	ErrorCode_FILENAME_FAILURE
	ErrorCode_WEBHOOK_FAILURE

	// Capture path
	ErrorCode_DOM_STRUCTURE_FAILURE

	// AI gateway
	ErrorCode_AI_GATEWAY_FAILURE
	ErrorCode_AI_INVALID_RESPONSE_FORMAT

	// Infrastructure
	ErrorCode_CACHE_FAILURE
	ErrorCode_DB_QUERY_FAILED
	ErrorCode_STORAGE_FAILED
)

var codeNames = map[ErrorCode]string{
	ErrorCode_UNKNOWN:                    "UNKNOWN",
	ErrorCode_INTERNAL:                   "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:           "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                  "NOT_FOUND",
	ErrorCode_EMPTY_CAPTURE:              "EMPTY_CAPTURE",
	ErrorCode_PERSIST_FAILURE:            "PERSIST_FAILURE",
	ErrorCode_FILENAME_FAILURE:           "FILENAME_FAILURE",
	ErrorCode_WEBHOOK_FAILURE:            "WEBHOOK_FAILURE",
	ErrorCode_DOM_STRUCTURE_FAILURE:      "DOM_STRUCTURE_FAILURE",
	ErrorCode_AI_GATEWAY_FAILURE:         "AI_GATEWAY_FAILURE",
	ErrorCode_AI_INVALID_RESPONSE_FORMAT: "AI_INVALID_RESPONSE_FORMAT",
	ErrorCode_CACHE_FAILURE:              "CACHE_FAILURE",
	ErrorCode_DB_QUERY_FAILED:            "DB_QUERY_FAILED",
	ErrorCode_STORAGE_FAILED:             "STORAGE_FAILED",
}

// String returns the stable name of the error code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
