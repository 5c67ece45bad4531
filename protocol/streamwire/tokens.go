package streamwire

// Fixed response tokens. Admission-gate rejections always use one of the
// two "generic" tokens below (ErrNotPermitted, ErrBusyTryLater) so that a
// probing attacker cannot distinguish one rejection reason from another
// by the response body; differentiation lives only in structured logs
// (see server/log.go). A pre-takeover duplicate-connection rejection
// uses ErrAlreadyStreaming.
const (
	ErrNotPermitted     = "START_STREAMING_ERROR_NOT_PERMITTED"
	ErrBusyTryLater     = "START_STREAMING_ERROR_BUSY_TRY_LATER"
	ErrAlreadyStreaming = "START_STREAMING_ERROR_ALREADY_STREAMING"

	// Post-takeover, in-band tokens: written as raw bytes on the
	// now-owned stream socket because the HTTP status code is no
	// longer observed by anything on the wire.
	ErrInternalError  = "START_STREAMING_ERROR_INTERNAL_ERROR"
	ErrInitialization = "START_STREAMING_ERROR_INITIALIZATION"
	ErrSameLocalhost  = "START_STREAMING_ERROR_SAME_LOCALHOST"

	// Success prompts.
	PromptV1 = "START_STREAMING_PROMPT_V1"
	PromptV2 = "START_STREAMING_PROMPT_V2"
	PromptVN = "START_STREAMING_PROMPT_VN"
)
