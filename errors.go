package streamjson

import (
	"errors"
	"fmt"
)

// Core error definitions - one sentinel per failure class so callers can
// apply distinct retry/backoff policy per kind.
var (
	// Argument and lifecycle errors (fatal to the call, not the session)
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionFinalized = errors.New("session already finalized")
	ErrParserClosed     = errors.New("parser is closed")

	// Content errors (recorded on the session, surfaced as ERROR events)
	ErrParsing    = errors.New("content could not be parsed as JSON")
	ErrRepairGave = errors.New("repair produced no valid JSON")

	// Resource errors
	ErrBufferOverflow = errors.New("chunk buffer overflow")
	ErrChunkTooLarge  = errors.New("chunk size limit exceeded")

	// Timing errors (advisory)
	ErrChunkTimeout = errors.New("chunk deadline elapsed")

	// Filter configuration errors (fatal at construction time)
	ErrInvalidFilter = errors.New("invalid field filter configuration")
)

// StreamError represents a streaming-parse error with essential context.
type StreamError struct {
	Op        string `json:"op"`         // Operation that failed
	Path      string `json:"path"`       // Field path where the error occurred, if any
	SessionID string `json:"session_id"` // Owning session, if any
	Message   string `json:"message"`    // Human-readable error message
	Err       error  `json:"err"`        // Underlying sentinel or cause
}

func (e *StreamError) Error() string {
	switch {
	case e.Path != "" && e.SessionID != "":
		return fmt.Sprintf("streamjson %s failed at path '%s' (session %s): %s", e.Op, e.Path, e.SessionID, e.Message)
	case e.SessionID != "":
		return fmt.Sprintf("streamjson %s failed (session %s): %s", e.Op, e.SessionID, e.Message)
	case e.Path != "":
		return fmt.Sprintf("streamjson %s failed at path '%s': %s", e.Op, e.Path, e.Message)
	default:
		return fmt.Sprintf("streamjson %s failed: %s", e.Op, e.Message)
	}
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *StreamError) Is(target error) bool {
	if target == nil {
		return false
	}
	if targetErr, ok := target.(*StreamError); ok {
		return e.Op == targetErr.Op && errors.Is(e.Err, targetErr.Err)
	}
	return errors.Is(e.Err, target)
}

// Code returns the machine-readable code for the error's failure class.
func (e *StreamError) Code() string {
	switch {
	case errors.Is(e.Err, ErrBufferOverflow), errors.Is(e.Err, ErrChunkTooLarge):
		return ErrCodeBufferOverflow
	case errors.Is(e.Err, ErrChunkTimeout):
		return ErrCodeTimeout
	case errors.Is(e.Err, ErrInvalidFilter):
		return ErrCodeFieldFiltering
	case errors.Is(e.Err, ErrParsing), errors.Is(e.Err, ErrRepairGave):
		return ErrCodeParsing
	case errors.Is(e.Err, ErrParserClosed), errors.Is(e.Err, ErrSessionFinalized):
		return ErrCodeSessionClosed
	default:
		return ErrCodeValidation
	}
}

// newValidationError creates a StreamError for bad call arguments.
func newValidationError(op, sessionID, message string) error {
	return &StreamError{
		Op:        op,
		SessionID: sessionID,
		Message:   message,
		Err:       ErrInvalidArgument,
	}
}

// newSessionError creates a StreamError for session lookup failures.
func newSessionError(op, sessionID string) error {
	return &StreamError{
		Op:        op,
		SessionID: sessionID,
		Message:   "no active session with this id",
		Err:       ErrSessionNotFound,
	}
}

// newOverflowError creates a StreamError for buffer bound violations.
func newOverflowError(op, sessionID string, size, limit int) error {
	return &StreamError{
		Op:        op,
		SessionID: sessionID,
		Message:   fmt.Sprintf("buffer size %d reached limit %d", size, limit),
		Err:       ErrBufferOverflow,
	}
}

// newFilterError creates a StreamError for filter configuration problems.
func newFilterError(path, message string) error {
	return &StreamError{
		Op:      "field_filter",
		Path:    path,
		Message: message,
		Err:     ErrInvalidFilter,
	}
}

// ErrorClassifier helps classify errors for better handling.
type ErrorClassifier struct{}

// NewErrorClassifier creates a new error classifier.
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// IsRetryable determines if an error may succeed on retry with more data.
func (ec *ErrorClassifier) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrParsing):
		return true
	case errors.Is(err, ErrRepairGave):
		return true
	case errors.Is(err, ErrChunkTimeout):
		return true
	default:
		return false
	}
}

// IsSessionFatal determines if an error ends the session.
func (ec *ErrorClassifier) IsSessionFatal(err error) bool {
	switch {
	case errors.Is(err, ErrBufferOverflow):
		return true
	case errors.Is(err, ErrSessionFinalized):
		return true
	case errors.Is(err, ErrParserClosed):
		return true
	default:
		return false
	}
}

// IsUserError determines if an error is caused by caller input.
func (ec *ErrorClassifier) IsUserError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return true
	case errors.Is(err, ErrSessionNotFound):
		return true
	case errors.Is(err, ErrInvalidFilter):
		return true
	case errors.Is(err, ErrChunkTooLarge):
		return true
	default:
		return false
	}
}

// WrapError wraps an error with operation context.
func WrapError(err error, op, message string) error {
	if err == nil {
		return nil
	}
	return &StreamError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// WrapPathError wraps an error with path context.
func WrapPathError(err error, op, path, message string) error {
	if err == nil {
		return nil
	}
	return &StreamError{
		Op:      op,
		Path:    path,
		Message: message,
		Err:     err,
	}
}
