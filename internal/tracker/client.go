package tracker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const defaultClientTimeout = 10 * time.Second

// SignupRequest 注册请求体
type SignupRequest struct {
	Email          string                 `json:"email"`
	FirstName      string                 `json:"firstName"`
	CaptchaToken   string                 `json:"captchaToken,omitempty"`
	CaptchaID      string                 `json:"captcha_id,omitempty"`
	CaptchaCode    string                 `json:"captcha_code,omitempty"`
	SessionID      string                 `json:"sessionId"`
	PageURL        string                 `json:"pageUrl,omitempty"`
	PageTitle      string                 `json:"pageTitle,omitempty"`
	BehavioralData []Entry                `json:"behavioralData"`
	DeviceData     map[string]interface{} `json:"deviceData,omitempty"`
	LocationData   map[string]interface{} `json:"locationData,omitempty"`
}

// SignupResponse 注册响应
type SignupResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	AlreadySubscribed bool   `json:"alreadySubscribed"`
	NewSubscriber     bool   `json:"newSubscriber"`
}

// TrackEventRequest 行为事件请求体，eventData 以 JSON 字符串发送
type TrackEventRequest struct {
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
	EventType string `json:"eventType"`
	EventData string `json:"eventData"`
	PageURL   string `json:"pageUrl"`
	PageTitle string `json:"pageTitle,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// TrackPageViewRequest 页面浏览请求体
type TrackPageViewRequest struct {
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
	PageURL   string `json:"pageUrl"`
	PageTitle string `json:"pageTitle"`
	TimeSpent int64  `json:"timeSpent"`
	Referrer  string `json:"referrer"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// IngestionClient 采集端点客户端
type IngestionClient interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error)
	TrackEvent(ctx context.Context, req TrackEventRequest) error
	TrackPageView(ctx context.Context, req TrackPageViewRequest) error
}

// StatusError 采集端点返回的非 2xx 响应
type StatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Path, e.StatusCode, e.Message)
}

// HTTPIngestionClient 通过 HTTP JSON 调用采集端点
type HTTPIngestionClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPIngestionClient 创建客户端，httpClient 为空时使用带超时的默认客户端
func NewHTTPIngestionClient(baseURL string, httpClient *http.Client) *HTTPIngestionClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	return &HTTPIngestionClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

// Signup 调用注册接口，业务失败（success=false）同样返回响应体
func (c *HTTPIngestionClient) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	var resp SignupResponse
	status, err := c.post(ctx, "/api/newsletter/signup", req, &resp)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusInternalServerError {
		return &resp, &StatusError{Path: "/api/newsletter/signup", StatusCode: status, Message: resp.Message}
	}
	return &resp, nil
}

// TrackEvent 上报单个行为事件
func (c *HTTPIngestionClient) TrackEvent(ctx context.Context, req TrackEventRequest) error {
	return c.postExpectOK(ctx, "/api/track/event", req)
}

// TrackPageView 上报单个页面浏览
func (c *HTTPIngestionClient) TrackPageView(ctx context.Context, req TrackPageViewRequest) error {
	return c.postExpectOK(ctx, "/api/track/page-view", req)
}

func (c *HTTPIngestionClient) postExpectOK(ctx context.Context, path string, body interface{}) error {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	status, err := c.post(ctx, path, body, &resp)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 || !resp.Success {
		return &StatusError{Path: path, StatusCode: status, Message: resp.Message}
	}
	return nil
}

func (c *HTTPIngestionClient) post(ctx context.Context, path string, body interface{}, out interface{}) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if len(payload) > 0 && out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}
