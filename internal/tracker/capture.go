package tracker

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"

	"go.uber.org/zap"
)

const (
	clickTextLimit = 100
	scrollStep     = 25
)

var productHandlePattern = regexp.MustCompile(`/products/([^/?#]+)`)

// Page 当前页面上下文
type Page struct {
	URL      string
	Title    string
	Referrer string
}

// Element 被交互的页面元素，字段缺失时按空值处理
type Element struct {
	Tag        string
	ID         string
	ClassName  string
	Name       string
	Type       string
	Text       string
	Href       string
	Attributes map[string]string
}

func (e Element) attr(name string) string {
	if e.Attributes == nil {
		return ""
	}
	return strings.TrimSpace(e.Attributes[name])
}

// Capture 把页面活动转换为事件并写入本地缓存，不受身份限制，也不做网络请求
type Capture struct {
	cache *EventCache
	log   *zap.SugaredLogger
	now   func() time.Time

	mu        sync.Mutex
	page      Page
	pageStart time.Time
	maxScroll int
}

// NewCapture 创建捕获层
func NewCapture(cache *EventCache, log *zap.SugaredLogger) *Capture {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Capture{cache: cache, log: log, now: time.Now}
}

// CurrentPage 当前页面
func (c *Capture) CurrentPage() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// PageStart 当前页面的进入时间
func (c *Capture) PageStart() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageStart
}

// EnterPage 进入新页面：记录 page_view，并按路径补充商品、分类、购物车或结账事件
func (c *Capture) EnterPage(page Page) {
	defer c.recoverCapture("enter_page")
	c.mu.Lock()
	c.page = page
	c.pageStart = c.now()
	c.maxScroll = 0
	c.mu.Unlock()

	c.record(constants.EventPageView, map[string]interface{}{
		"url":      page.URL,
		"title":    page.Title,
		"referrer": page.Referrer,
	})

	path := pathOf(page.URL)
	switch {
	case strings.Contains(path, "/products/"):
		c.record(constants.EventProductView, map[string]interface{}{
			"productId":    productHandle(page.URL),
			"productTitle": page.Title,
		})
	case strings.Contains(path, "/collections/"):
		c.record(constants.EventCollectionView, map[string]interface{}{
			"collection": segmentAfter(path, "/collections/"),
		})
	case strings.Contains(path, "/checkout"):
		c.record(constants.EventCheckoutView, map[string]interface{}{
			"step": checkoutStep(path),
		})
	case strings.Contains(path, "/cart"):
		c.record(constants.EventCartView, map[string]interface{}{})
	}
}

// Click 记录点击；加购按钮额外记录 add_to_cart_click
func (c *Capture) Click(el Element) {
	defer c.recoverCapture("click")
	data := map[string]interface{}{
		"tagName":   strings.ToUpper(el.Tag),
		"className": el.ClassName,
		"id":        el.ID,
		"text":      truncate(strings.TrimSpace(el.Text), clickTextLimit),
	}
	if el.Href != "" {
		data["href"] = el.Href
	}
	c.record(constants.EventButtonClick, data)

	if isAddToCart(el) {
		productID := el.attr("data-product-id")
		if productID == "" {
			productID = productHandle(el.Href)
		}
		if productID == "" {
			productID = productHandle(c.CurrentPage().URL)
		}
		title := el.attr("data-product-title")
		if title == "" {
			title = c.CurrentPage().Title
		}
		c.record(constants.EventAddToCartClick, map[string]interface{}{
			"productId":    productID,
			"productTitle": title,
		})
	}
}

// Scroll 记录滚动深度，仅在跨过新的 25% 档位时记录
func (c *Capture) Scroll(percent int) {
	defer c.recoverCapture("scroll")
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	milestone := percent / scrollStep * scrollStep
	c.mu.Lock()
	if milestone == 0 || milestone <= c.maxScroll {
		c.mu.Unlock()
		return
	}
	c.maxScroll = milestone
	c.mu.Unlock()
	c.record(constants.EventScrollDepth, map[string]interface{}{
		"percent":       milestone,
		"scrollPercent": percent,
	})
}

// FieldFocus 记录输入框聚焦
func (c *Capture) FieldFocus(el Element) {
	defer c.recoverCapture("field_focus")
	c.record(constants.EventFormFieldFocus, map[string]interface{}{
		"inputType":   el.Type,
		"inputName":   el.Name,
		"inputId":     el.ID,
		"placeholder": el.attr("placeholder"),
	})
}

// Track 记录自定义事件
func (c *Capture) Track(eventType string, data map[string]interface{}) Entry {
	defer c.recoverCapture("track")
	return c.record(eventType, data)
}

func (c *Capture) record(eventType string, data map[string]interface{}) Entry {
	copied := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		copied[k] = v
	}
	now := c.now()
	copied["timestamp"] = now.UnixMilli()
	page := c.CurrentPage()
	entry := Entry{
		Type:      strings.TrimSpace(eventType),
		Data:      copied,
		PageURL:   page.URL,
		PageTitle: page.Title,
		Timestamp: now.UnixMilli(),
	}
	if c.cache != nil {
		c.cache.Append(entry)
	}
	return entry
}

func (c *Capture) recoverCapture(op string) {
	if r := recover(); r != nil {
		c.log.Warnw("tracker_capture_panic", "op", op, "panic", r)
	}
}

func isAddToCart(el Element) bool {
	text := strings.ToLower(el.Text)
	className := strings.ToLower(el.ClassName)
	return strings.Contains(text, "add to cart") ||
		strings.Contains(text, "add to bag") ||
		strings.Contains(className, "add-to-cart") ||
		strings.Contains(className, "add-cart") ||
		el.Name == "add" ||
		el.attr("data-add-to-cart") != ""
}

func checkoutStep(path string) string {
	switch {
	case strings.Contains(path, "/checkout/contact"):
		return "contact_info"
	case strings.Contains(path, "/checkout/shipping"):
		return "shipping_info"
	case strings.Contains(path, "/checkout/payment"):
		return "payment_info"
	default:
		return "checkout_start"
	}
}

func pathOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Path
}

func productHandle(raw string) string {
	match := productHandlePattern.FindStringSubmatch(raw)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

func segmentAfter(path, prefix string) string {
	idx := strings.Index(path, prefix)
	if idx < 0 {
		return ""
	}
	rest := path[idx+len(prefix):]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
