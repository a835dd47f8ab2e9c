package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
)

var (
	// ErrDirectoryDisabled 未配置外部目录
	ErrDirectoryDisabled = errors.New("customer directory disabled")
	// ErrRequestFailed 请求失败（网络 / 非 2xx / 熔断）
	ErrRequestFailed = errors.New("customer directory request failed")
	// ErrResponseInvalid 响应无法解析
	ErrResponseInvalid = errors.New("customer directory response invalid")
)

// 营销授权状态
const (
	ConsentSubscribed    = "subscribed"
	ConsentPending       = "pending"
	ConsentNotSubscribed = "not_subscribed"
)

// Customer 外部目录中的客户记录
type Customer struct {
	ID               string
	Email            string
	FirstName        string
	Tags             []string
	AcceptsMarketing bool
	ConsentState     string
}

// HasTag 忽略大小写判断标签
func (c *Customer) HasTag(tag string) bool {
	if c == nil {
		return false
	}
	want := strings.ToLower(strings.TrimSpace(tag))
	for _, t := range c.Tags {
		if strings.ToLower(strings.TrimSpace(t)) == want {
			return true
		}
	}
	return false
}

// Directory 外部客户目录能力
type Directory interface {
	// FindByEmail 不存在时返回 nil, nil
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	Create(ctx context.Context, email, firstName string) (*Customer, error)
	// IsConfirmedSubscriber 根据标签与营销授权判断是否已确认订阅
	IsConfirmedSubscriber(customer *Customer) bool
}

// DisabledDirectory 未配置时的占位实现
type DisabledDirectory struct{}

// FindByEmail 始终返回未找到
func (DisabledDirectory) FindByEmail(ctx context.Context, email string) (*Customer, error) {
	return nil, nil
}

// Create 始终返回 ErrDirectoryDisabled
func (DisabledDirectory) Create(ctx context.Context, email, firstName string) (*Customer, error) {
	return nil, ErrDirectoryDisabled
}

// IsConfirmedSubscriber 始终为 false
func (DisabledDirectory) IsConfirmedSubscriber(customer *Customer) bool {
	return false
}

// New 按配置创建目录实现，未配置时返回 DisabledDirectory
func New(cfg config.DirectoryConfig) Directory {
	if !cfg.Enabled() {
		return DisabledDirectory{}
	}
	return NewShopifyDirectory(Config{
		ShopDomain:                 cfg.ShopDomain,
		AccessToken:                cfg.AccessToken,
		APIVersion:                 cfg.APIVersion,
		NewsletterTag:              cfg.NewsletterTag,
		Timeout:                    time.Duration(cfg.TimeoutMS) * time.Millisecond,
		BreakerMaxRequests:         cfg.Breaker.MaxRequests,
		BreakerInterval:            time.Duration(cfg.Breaker.IntervalSeconds) * time.Second,
		BreakerTimeout:             time.Duration(cfg.Breaker.TimeoutSeconds) * time.Second,
		BreakerConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
	}, nil)
}
