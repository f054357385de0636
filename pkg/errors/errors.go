package errors

import (
	"errors"
	"fmt"
)

// ErrorCode 错误码类型
type ErrorCode string

const (
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"

	// Relay taxonomy
	CodeNotPaired    ErrorCode = "NOT_PAIRED"
	CodeInvalidCode  ErrorCode = "INVALID_CODE"
	CodeTranscode    ErrorCode = "TRANSCODE_FAILED"
	CodeStore        ErrorCode = "STORE_FAILURE"
	CodeUpstreamAuth ErrorCode = "UPSTREAM_AUTH"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError 创建无效输入错误
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: message,
	}
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
	}
}

// NewInternalErrorWithCause 创建带原因的内部错误
func NewInternalErrorWithCause(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Err:     cause,
	}
}

// NewNotPairedError 身份未配对
func NewNotPairedError(identity string) *AppError {
	return &AppError{
		Code:    CodeNotPaired,
		Message: fmt.Sprintf("identity %q is not paired", identity),
	}
}

// NewInvalidCodeError 配对码无效、过期或已被使用
func NewInvalidCodeError() *AppError {
	return &AppError{
		Code:    CodeInvalidCode,
		Message: "invalid or expired code",
	}
}

// NewTranscodeError 转码失败
func NewTranscodeError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeTranscode,
		Message: message,
		Err:     cause,
	}
}

// NewStoreError 持久化层失败
func NewStoreError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStore,
		Message: message,
		Err:     cause,
	}
}

// WrapStore keeps err when it already carries a code and otherwise wraps it
// as a STORE_FAILURE.
func WrapStore(message string, err error) error {
	if err == nil {
		return nil
	}
	if CodeOf(err) != "" {
		return err
	}
	return NewStoreError(message, err)
}

// NewUpstreamAuthError 内部 API 凭证不匹配
func NewUpstreamAuthError() *AppError {
	return &AppError{
		Code:    CodeUpstreamAuth,
		Message: "missing or incorrect api key",
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" when
// err carries none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsNotFound 判断是否为未找到错误
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsInvalidInput 判断是否为无效输入错误
func IsInvalidInput(err error) bool { return hasCode(err, CodeInvalidInput) }

// IsNotPaired 判断是否为未配对错误
func IsNotPaired(err error) bool { return hasCode(err, CodeNotPaired) }

// IsInvalidCode 判断是否为无效配对码错误
func IsInvalidCode(err error) bool { return hasCode(err, CodeInvalidCode) }

// IsTranscode 判断是否为转码错误
func IsTranscode(err error) bool { return hasCode(err, CodeTranscode) }

// IsStore 判断是否为存储错误
func IsStore(err error) bool { return hasCode(err, CodeStore) }

// IsUpstreamAuth 判断是否为内部 API 认证错误
func IsUpstreamAuth(err error) bool { return hasCode(err, CodeUpstreamAuth) }
