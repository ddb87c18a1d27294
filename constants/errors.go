package constants

// ErrorCode is the closed enumeration of error codes shared by the backend
// error envelope and the client-side normalized error.
type ErrorCode string

const (
	ErrCodeParse             ErrorCode = "PARSE_ERROR"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeInvalidSchema     ErrorCode = "INVALID_SCHEMA"
	ErrCodeLLM               ErrorCode = "LLM_ERROR"
	ErrCodeExtraction        ErrorCode = "EXTRACTION_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeOperationNotFound ErrorCode = "OPERATION_NOT_FOUND"
	ErrCodeOperationExpired  ErrorCode = "OPERATION_EXPIRED"
	ErrCodeNetwork           ErrorCode = "NETWORK_ERROR"
	ErrCodeUnknown           ErrorCode = "UNKNOWN_ERROR"
)

var knownErrorCodes = map[ErrorCode]struct{}{
	ErrCodeParse:             {},
	ErrCodeUnsupportedFormat: {},
	ErrCodeInvalidSchema:     {},
	ErrCodeLLM:               {},
	ErrCodeExtraction:        {},
	ErrCodeValidation:        {},
	ErrCodeOperationNotFound: {},
	ErrCodeOperationExpired:  {},
	ErrCodeNetwork:           {},
	ErrCodeUnknown:           {},
}

// CanonicalErrorCode maps an arbitrary server-supplied code onto the closed
// enumeration, falling back to UNKNOWN_ERROR for codes this client does not
// recognize.
func CanonicalErrorCode(code string) ErrorCode {
	if _, ok := knownErrorCodes[ErrorCode(code)]; ok {
		return ErrorCode(code)
	}
	return ErrCodeUnknown
}
