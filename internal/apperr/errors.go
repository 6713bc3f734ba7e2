// Package apperr defines the error kinds returned by the persona and follow
// graph services. The HTTP layer maps kinds to status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindInvalidFormat   Kind = "INVALID_FORMAT"
	KindConflict        Kind = "CONFLICT"
	KindNotFound        Kind = "NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindStale           Kind = "STALE"
	KindInternal        Kind = "INTERNAL"
)

// Error 带类别的业务错误
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同 Code 的错误视为相等，便于包装后的错误与哨兵比较
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 构造错误
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap 复制哨兵并附带底层原因
func Wrap(sentinel *Error, err error) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: sentinel.Message, Err: err}
}

// WithMessage 复制哨兵并替换描述
func WithMessage(sentinel *Error, format string, args ...any) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: fmt.Sprintf(format, args...)}
}

// KindOf 返回错误链上第一个 *Error 的类别，未知错误为 KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind 判断错误链是否属于某类别
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var (
	ErrInvalidHandle  = New(KindInvalidFormat, "INVALID_HANDLE", "handle must be a nonempty alphanumeric or underscore token")
	ErrInvalidName    = New(KindInvalidFormat, "INVALID_NAME", "name must be 1 to 6 word groups separated by single spaces")
	ErrInvalidContent = New(KindInvalidFormat, "INVALID_CONTENT", "content must be 1 to 140 characters")
	ErrInvalidAccount = New(KindInvalidFormat, "INVALID_ACCOUNT", "username must be alphanumeric and password at least 6 characters")

	ErrHandleTaken   = New(KindConflict, "HANDLE_TAKEN", "a persona with this handle already exists")
	ErrFollowExists  = New(KindConflict, "ALREADY_EXISTS", "already following this persona")
	ErrUsernameTaken = New(KindConflict, "USERNAME_TAKEN", "an account with this username already exists")

	ErrPersonaNotFound = New(KindNotFound, "PERSONA_NOT_FOUND", "persona not found")
	ErrFollowNotFound  = New(KindNotFound, "FOLLOW_NOT_FOUND", "not following this persona")
	ErrFreetNotFound   = New(KindNotFound, "FREET_NOT_FOUND", "freet not found")
	ErrAccountNotFound = New(KindNotFound, "ACCOUNT_NOT_FOUND", "account not found")

	ErrNotOwner            = New(KindForbidden, "NOT_OWNER", "persona is not owned by this account")
	ErrSelfFollow          = New(KindForbidden, "SELF_FOLLOW", "a persona cannot follow itself")
	ErrDeleteActivePersona = New(KindForbidden, "ACTIVE_PERSONA", "cannot delete the active persona; switch or sign out first")

	ErrNoActivePersona    = New(KindUnauthenticated, "NO_ACTIVE_PERSONA", "no persona is signed in")
	ErrBadCredentials     = New(KindUnauthenticated, "BAD_CREDENTIALS", "invalid username or password")
	ErrStaleActivePersona = New(KindStale, "STALE_PERSONA", "the active persona no longer exists")
)
