package service

import "errors"

var (
	// ErrValidation 必填字段缺失或格式错误
	ErrValidation = errors.New("validation failed")
	// ErrSubscriberNotFound 订阅者不存在
	ErrSubscriberNotFound = errors.New("subscriber not found")
	// ErrAlreadySubscribed 邮箱已订阅
	ErrAlreadySubscribed = errors.New("already subscribed")
	// ErrDirectoryUnavailable 外部目录不可用
	ErrDirectoryUnavailable = errors.New("customer directory unavailable")
	// ErrDirectoryCustomerNotFound 外部目录中无此客户
	ErrDirectoryCustomerNotFound = errors.New("customer not found in directory")
	// ErrStorage 存储层失败
	ErrStorage = errors.New("storage failure")

	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrCaptchaVerifyFailed  = errors.New("captcha verify failed")

	// ErrInvalidCredentials 管理员账号或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken 管理员令牌无效
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError 携带字段与消息 key 的校验错误
type ValidationError struct {
	Field string
	Key   string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Field
}

// Is 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, key string) error {
	return &ValidationError{Field: field, Key: key}
}
