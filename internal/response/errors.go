package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"
	ErrNotRoomOwner      ErrCode = "NOT_ROOM_OWNER"
	ErrResultsNotPublic  ErrCode = "RESULTS_NOT_PUBLISHED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Room / submission specific ────────────────────────────────────
	ErrRoomEnded         ErrCode = "ROOM_ENDED"
	ErrRoomFull          ErrCode = "ROOM_FULL"
	ErrStudentBanned     ErrCode = "STUDENT_BANNED"
	ErrNotOnAllowList    ErrCode = "NOT_ON_ALLOW_LIST"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"
	ErrInvalidTransition ErrCode = "INVALID_STATE_TRANSITION"
	ErrQuizNotActive     ErrCode = "QUIZ_NOT_ACTIVE"
	ErrNotGradable       ErrCode = "NOT_GRADABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
// Join and submit reasons stay specific so the client can render an
// actionable message rather than a generic failure.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."
	case ErrNotRoomOwner:
		return "You are not the owner of this room."
	case ErrResultsNotPublic:
		return "The teacher has not published results for this room."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The request conflicts with the current state."

	// ─── Room / submission specific ────────────────────────────────────
	case ErrRoomEnded:
		return "This exam room has already ended."
	case ErrRoomFull:
		return "This exam room is full."
	case ErrStudentBanned:
		return "You have been banned from this exam room."
	case ErrNotOnAllowList:
		return "You are not on the participant list for this exam room."
	case ErrAlreadySubmitted:
		return "This attempt has already been submitted."
	case ErrInvalidTransition:
		return "The room cannot move to the requested state."
	case ErrQuizNotActive:
		return "The linked quiz is not active."
	case ErrNotGradable:
		return "This answer cannot be graded."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
