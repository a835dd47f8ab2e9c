package repository

import "errors"

var (
	// ErrDuplicateEmail 邮箱已存在
	ErrDuplicateEmail = errors.New("subscriber email already exists")
	// ErrInvalidEventType 事件类型不在枚举内
	ErrInvalidEventType = errors.New("invalid behavioral event type")
	// ErrInvalidStatus 订阅状态非法
	ErrInvalidStatus = errors.New("invalid subscription status")
	// ErrSubscriberMissing 子记录引用的订阅者不存在
	ErrSubscriberMissing = errors.New("referenced subscriber does not exist")
	// ErrPurgeInconsistent 级联删除中途失败，需人工修复
	ErrPurgeInconsistent = errors.New("subscriber purge left partial state")
)
