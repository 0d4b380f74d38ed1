package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrSessionNotFound  ErrCode = "SESSION_NOT_FOUND"
	ErrSessionCompleted ErrCode = "SESSION_COMPLETED"
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrSessionUpdate    ErrCode = "PRACTICE_SESSION_UPDATE_FAILED"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamNotFound ErrCode = "EXAM_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "The request payload does not match any supported operation."
	case ErrSessionNotFound:
		return "Practice session not found."
	case ErrSessionCompleted:
		return "This practice session is completed and can no longer be modified."
	case ErrUnknownQuestion:
		return "The question does not belong to this practice session."
	case ErrSessionUpdate:
		return "The practice session could not be updated. Please retry."
	case ErrExamNotFound:
		return "Exam not found."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
