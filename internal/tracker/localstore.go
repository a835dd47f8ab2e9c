package tracker

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// 浏览器侧持久化集合的固定键
const (
	PageViewsKey  = "newsletterTracker_pageViews"
	BehavioralKey = "newsletterTracker_behavioral"
)

// LocalStore 客户端本地持久化存储，按键读写整段集合
type LocalStore interface {
	// Get 键不存在时返回 nil, nil
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(keys ...string) error
	Close() error
}

// BadgerLocalStore 基于 badger 的本地存储，同一目录在进程重启后仍可读回
type BadgerLocalStore struct {
	db *badger.DB
}

// OpenBadgerLocalStore 打开本地存储，dir 为空时使用内存模式
func OpenBadgerLocalStore(dir string) (*BadgerLocalStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return &BadgerLocalStore{db: db}, nil
}

// Get 读取集合原始内容
func (s *BadgerLocalStore) Get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out, nil
}

// Set 覆盖写入集合
func (s *BadgerLocalStore) Set(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete 删除多个键，不存在的键忽略
func (s *BadgerLocalStore) Delete(keys ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// Close 关闭底层数据库
func (s *BadgerLocalStore) Close() error {
	return s.db.Close()
}
