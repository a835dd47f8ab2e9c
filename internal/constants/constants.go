package constants

import "sort"

// 订阅状态常量
const (
	SubscriptionStatusPending      = "pending"
	SubscriptionStatusConfirmed    = "confirmed"
	SubscriptionStatusUnsubscribed = "unsubscribed"
)

// IsValidSubscriptionStatus 校验订阅状态
func IsValidSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionStatusPending, SubscriptionStatusConfirmed, SubscriptionStatusUnsubscribed:
		return true
	}
	return false
}

// 订阅来源
const (
	SubscriberSourceDefault = "shopify_store"
)

// 行为事件类型（封闭枚举）
const (
	EventPageView                      = "page_view"
	EventNewsletterFormView            = "newsletter_form_view"
	EventNewsletterFormFieldFocus      = "newsletter_form_field_focus"
	EventNewsletterFormSubmit          = "newsletter_form_submit"
	EventNewsletterFormSuccess         = "newsletter_form_success"
	EventNewsletterFormError           = "newsletter_form_error"
	EventNewsletterFormValidationError = "newsletter_form_validation_error"
	EventNewsletterFormAPICall         = "newsletter_form_api_call"
	EventNewsletterFormAPIError        = "newsletter_form_api_error"
	EventNewsletterFormNetworkError    = "newsletter_form_network_error"
	EventNewsletterFormMessageShown    = "newsletter_form_message_shown"
	EventNewsletterSignupAttempt       = "newsletter_signup_attempt"
	EventNewsletterSignupSuccess       = "newsletter_signup_success"
	EventNewsletterSignupError         = "newsletter_signup_error"
	EventScrollDepth                   = "scroll_depth"
	EventAddToCartClick                = "add_to_cart_click"
	EventFormFieldFocus                = "form_field_focus"
	EventButtonClick                   = "button_click"
	EventProductView                   = "product_view"
	EventCollectionView                = "collection_view"
	EventCartView                      = "cart_view"
	EventCheckoutView                  = "checkout_view"
)

var eventTypes = map[string]struct{}{
	EventPageView:                      {},
	EventNewsletterFormView:            {},
	EventNewsletterFormFieldFocus:      {},
	EventNewsletterFormSubmit:          {},
	EventNewsletterFormSuccess:         {},
	EventNewsletterFormError:           {},
	EventNewsletterFormValidationError: {},
	EventNewsletterFormAPICall:         {},
	EventNewsletterFormAPIError:        {},
	EventNewsletterFormNetworkError:    {},
	EventNewsletterFormMessageShown:    {},
	EventNewsletterSignupAttempt:       {},
	EventNewsletterSignupSuccess:       {},
	EventNewsletterSignupError:         {},
	EventScrollDepth:                   {},
	EventAddToCartClick:                {},
	EventFormFieldFocus:                {},
	EventButtonClick:                   {},
	EventProductView:                   {},
	EventCollectionView:                {},
	EventCartView:                      {},
	EventCheckoutView:                  {},
}

// IsValidEventType 判断事件类型是否属于枚举
func IsValidEventType(eventType string) bool {
	_, ok := eventTypes[eventType]
	return ok
}

// EventTypes 返回全部事件类型（按字母序）
func EventTypes() []string {
	out := make([]string, 0, len(eventTypes))
	for t := range eventTypes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// 设备类型
const (
	DeviceTypeDesktop = "desktop"
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
)

// 验证码提供方
const (
	CaptchaProviderNone      = "none"
	CaptchaProviderImage     = "image"
	CaptchaProviderTurnstile = "turnstile"
)

// 验证码场景
const (
	CaptchaSceneNewsletterSignup = "newsletter_signup"
)

// 管理端角色
const (
	AdminRoleViewer   = "viewer"
	AdminRoleOperator = "operator"
	AdminRoleAdmin    = "admin"
)

// 异步任务
const (
	QueueDefault                = "default"
	TaskSubscriberDirectorySync = "subscriber:directory_sync"
)
