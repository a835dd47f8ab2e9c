package response

import "fmt"

// AppError 接口层错误：HTTP 状态码、国际化消息键、已翻译消息与原始错误
type AppError struct {
	Code    int
	Key     string
	Message string
	Err     error
}

// NewAppError 创建接口层错误
func NewAppError(code int, key, message string, err error) *AppError {
	return &AppError{Code: code, Key: key, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ServerSide 5xx 视为服务端故障
func (e *AppError) ServerSide() bool {
	return e.Code >= CodeInternal
}
