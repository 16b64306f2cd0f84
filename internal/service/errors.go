package service

import "errors"

// Domain errors. Handlers map these to HTTP status codes and response codes;
// join/submit failures stay specific so clients can render an actionable
// reason.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotOwner           = errors.New("not the owner of this room")
	ErrQuizNotActive      = errors.New("quiz is not active")
	ErrRoomEnded          = errors.New("room has ended")
	ErrRoomNotActive      = errors.New("room is not active")
	ErrRoomFull           = errors.New("room is at capacity")
	ErrBanned             = errors.New("student is banned from this room")
	ErrNotAllowed         = errors.New("student is not on the allow list")
	ErrAlreadySubmitted   = errors.New("submission already finalized")
	ErrInvalidTransition  = errors.New("invalid room state transition")
	ErrResultsNotPublic   = errors.New("results are not published")
	ErrNotGradable        = errors.New("answer is not gradable")
	ErrPointsExceedMax    = errors.New("awarded points exceed the question's maximum")
	ErrCodeSpaceExhausted = errors.New("room code allocation retries exhausted")
)
