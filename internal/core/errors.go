package core

import "errors"

// Error codes for user-visible rejections.
const (
	ErrCodePasswordIncorrect = "password_incorrect"
	ErrCodeErroneousNickname = "erroneous_nickname"
	ErrCodeCannotJoin        = "cannot_join"
	ErrCodeNeedMoreParams    = "need_more_params"
)

// ErrNotOwned is logged when activating an identity the credential does not own.
var ErrNotOwned = errors.New("identity not owned by credential")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	// Subject is the parameter the rejection refers to, such as a channel.
	Subject string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
