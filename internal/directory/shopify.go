package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/metrics"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	defaultAPIVersion    = "2023-10"
	defaultNewsletterTag = "newsletter-subscriber"
	defaultTimeout       = 5 * time.Second
	breakerName          = "shopify-admin-api"
	maxErrorBodyBytes    = 512
)

// Config Shopify Admin API 配置
type Config struct {
	ShopDomain    string
	AccessToken   string
	APIVersion    string
	NewsletterTag string
	Timeout       time.Duration
	// BaseURL 覆盖默认的 https://{shop}/admin/api/{version}/
	BaseURL string

	BreakerMaxRequests         uint32
	BreakerInterval            time.Duration
	BreakerTimeout             time.Duration
	BreakerConsecutiveFailures uint32
}

func (c *Config) normalize() {
	c.ShopDomain = strings.TrimSpace(c.ShopDomain)
	c.ShopDomain = strings.TrimPrefix(strings.TrimPrefix(c.ShopDomain, "https://"), "http://")
	c.ShopDomain = strings.TrimRight(c.ShopDomain, "/")
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	c.APIVersion = strings.TrimSpace(c.APIVersion)
	if c.APIVersion == "" {
		c.APIVersion = defaultAPIVersion
	}
	c.NewsletterTag = strings.TrimSpace(c.NewsletterTag)
	if c.NewsletterTag == "" {
		c.NewsletterTag = defaultNewsletterTag
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.BreakerMaxRequests == 0 {
		c.BreakerMaxRequests = 1
	}
	if c.BreakerInterval <= 0 {
		c.BreakerInterval = time.Minute
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 30 * time.Second
	}
	if c.BreakerConsecutiveFailures == 0 {
		c.BreakerConsecutiveFailures = 5
	}
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL == "" && c.ShopDomain != "" {
		c.BaseURL = fmt.Sprintf("https://%s/admin/api/%s/", c.ShopDomain, c.APIVersion)
	}
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
}

// ShopifyDirectory 通过 Shopify Admin API 访问客户目录，调用经过熔断器保护
type ShopifyDirectory struct {
	cfg    Config
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]byte]
}

// NewShopifyDirectory 创建 Shopify 目录客户端
func NewShopifyDirectory(cfg Config, client *http.Client) *ShopifyDirectory {
	cfg.normalize()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	metrics.DirectoryBreakerState.Set(0)
	trip := cfg.BreakerConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		IsSuccessful: func(err error) bool {
			// 4xx 属于调用方问题，不计入熔断
			var statusErr *statusError
			if errors.As(err, &statusErr) {
				return statusErr.code < http.StatusInternalServerError && statusErr.code != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.DirectoryBreakerState.Set(breakerStateValue(to))
			logger.Warnw("directory_breaker_state_change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &ShopifyDirectory{cfg: cfg, client: client, cb: cb}
}

// Config 返回归一化后的配置
func (d *ShopifyDirectory) Config() Config {
	return d.cfg
}

// BreakerState 当前熔断器状态
func (d *ShopifyDirectory) BreakerState() gobreaker.State {
	return d.cb.State()
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.code, e.body)
}

type customerPayload struct {
	ID                    int64           `json:"id"`
	Email                 string          `json:"email"`
	FirstName             string          `json:"first_name"`
	Tags                  string          `json:"tags"`
	AcceptsMarketing      bool            `json:"accepts_marketing"`
	EmailMarketingConsent *consentPayload `json:"email_marketing_consent,omitempty"`
}

type consentPayload struct {
	State            string `json:"state"`
	OptInLevel       string `json:"opt_in_level,omitempty"`
	ConsentUpdatedAt string `json:"consent_updated_at,omitempty"`
}

type createCustomerBody struct {
	Email                 string          `json:"email"`
	FirstName             string          `json:"first_name"`
	AcceptsMarketing      bool            `json:"accepts_marketing"`
	Tags                  string          `json:"tags"`
	VerifiedEmail         bool            `json:"verified_email"`
	EmailMarketingConsent *consentPayload `json:"email_marketing_consent"`
}

func (p *customerPayload) toCustomer() *Customer {
	if p == nil || p.ID == 0 {
		return nil
	}
	customer := &Customer{
		ID:               strconv.FormatInt(p.ID, 10),
		Email:            p.Email,
		FirstName:        p.FirstName,
		AcceptsMarketing: p.AcceptsMarketing,
	}
	for _, tag := range strings.Split(p.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			customer.Tags = append(customer.Tags, tag)
		}
	}
	if p.EmailMarketingConsent != nil {
		customer.ConsentState = p.EmailMarketingConsent.State
	}
	return customer
}

// FindByEmail 按邮箱搜索客户，返回第一条匹配
func (d *ShopifyDirectory) FindByEmail(ctx context.Context, email string) (*Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	query := url.Values{}
	query.Set("query", "email:"+email)
	body, err := d.do(ctx, "find", http.MethodGet, "customers/search.json?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Customers []customerPayload `json:"customers"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if len(resp.Customers) == 0 {
		return nil, nil
	}
	return resp.Customers[0].toCustomer(), nil
}

// Create 创建营销授权待确认（double opt-in）的客户
func (d *ShopifyDirectory) Create(ctx context.Context, email, firstName string) (*Customer, error) {
	payload := map[string]interface{}{
		"customer": createCustomerBody{
			Email:            strings.TrimSpace(email),
			FirstName:        strings.TrimSpace(firstName),
			AcceptsMarketing: true,
			Tags:             d.cfg.NewsletterTag,
			VerifiedEmail:    false,
			EmailMarketingConsent: &consentPayload{
				State:            ConsentPending,
				OptInLevel:       "confirmed_opt_in",
				ConsentUpdatedAt: time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	body, err := d.do(ctx, "create", http.MethodPost, "customers.json", raw)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Customer *customerPayload `json:"customer"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	customer := resp.Customer.toCustomer()
	if customer == nil {
		return nil, fmt.Errorf("%w: missing customer", ErrResponseInvalid)
	}
	return customer, nil
}

// IsConfirmedSubscriber 带订阅标签且接受营销
func (d *ShopifyDirectory) IsConfirmedSubscriber(customer *Customer) bool {
	if customer == nil {
		return false
	}
	return customer.HasTag(d.cfg.NewsletterTag) && customer.AcceptsMarketing
}

func (d *ShopifyDirectory) do(ctx context.Context, operation, method, path string, payload []byte) ([]byte, error) {
	if d.cfg.BaseURL == "" || d.cfg.AccessToken == "" {
		return nil, ErrDirectoryDisabled
	}
	body, err := d.cb.Execute(func() ([]byte, error) {
		return d.send(ctx, method, d.cfg.BaseURL+path, payload)
	})
	if err != nil {
		outcome := "failed"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		metrics.DirectoryRequests.WithLabelValues(operation, outcome).Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, operation, err)
	}
	metrics.DirectoryRequests.WithLabelValues(operation, "ok").Inc()
	return body, nil
}

func (d *ShopifyDirectory) send(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Shopify-Access-Token", d.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return nil, &statusError{code: resp.StatusCode, body: snippet}
	}
	return body, nil
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
