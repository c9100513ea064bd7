package service

import "errors"

// 业务错误哨兵，handle 层统一映射为 HTTP 状态码.
// 注意 ErrNotFound 同时覆盖"存在但无权看到"的情况，避免探测资源存在性.
var (
	// ErrValidation 请求参数不合法.
	ErrValidation = errors.New("invalid request")
	// ErrNotFound 资源不存在或对请求者不可见.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict 同级名称冲突等唯一性冲突.
	ErrConflict = errors.New("conflict")
	// ErrForbidden 资源存在且可见，但请求者无权执行该操作.
	ErrForbidden = errors.New("forbidden")
	// ErrPayloadTooLarge 上传内容超过大小上限.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrGone 公共链接已过期.
	ErrGone = errors.New("link expired")
	// ErrBackendUnavailable 对象存储等后端依赖不可用.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)

// validationError 包装一条带说明的参数错误.
func validationError(msg string) error {
	return joinMessage(ErrValidation, msg)
}

// joinMessage 在哨兵错误上附加可读信息，errors.Is 仍可匹配哨兵.
func joinMessage(sentinel error, msg string) error {
	return &messageError{sentinel: sentinel, msg: msg}
}

type messageError struct {
	sentinel error
	msg      string
}

func (e *messageError) Error() string {
	if e.msg == "" {
		return e.sentinel.Error()
	}

	return e.msg
}

func (e *messageError) Unwrap() error {
	return e.sentinel
}
