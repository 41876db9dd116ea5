package util

import (
	"errors"
	"fmt"
)

// 错误分类，业务层通过 %w 包装，调用方使用 errors.Is 判断
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrAccessDenied = errors.New("access denied")
	ErrNotFound     = errors.New("not found")
)

var (
	ErrUserNotFound       = fmt.Errorf("%w: 用户不存在", ErrNotFound)
	ErrScenarioNotFound   = fmt.Errorf("%w: scenario not found", ErrNotFound)
	ErrSessionNotFound    = fmt.Errorf("%w: session not found", ErrNotFound)
	ErrEmailRegistered    = fmt.Errorf("%w: 该邮箱已被注册", ErrConflict)
	ErrUsernameTaken      = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = fmt.Errorf("%w: account disabled", ErrAccessDenied)
)

func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func InvalidState(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func AccessDenied(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAccessDenied, fmt.Sprintf(format, args...))
}

// ConflictError 重复的进行中会话，SessionID 指向已存在的会话以便调用方继续
type ConflictError struct {
	SessionID uint
	Msg       string
}

func (e *ConflictError) Error() string {
	if e.SessionID > 0 {
		return fmt.Sprintf("conflict: %s (session %d)", e.Msg, e.SessionID)
	}
	return "conflict: " + e.Msg
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
