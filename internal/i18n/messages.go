package i18n

var catalogs = map[string]map[string]string{
	LocaleEnUS: {
		"error.bad_request":                "Invalid request",
		"error.route_not_found":            "Resource not found",
		"error.unauthorized":               "Unauthorized",
		"error.forbidden":                  "Forbidden",
		"error.too_many_requests":          "Too many requests, please try again later",
		"error.internal":                   "Something went wrong!",
		"error.rate_limited":               "Too many attempts, please retry in %d seconds",
		"error.rate_limit_unavailable":     "Rate limiter is unavailable",
		"error.auth_header_missing":        "Authorization header is missing",
		"error.auth_header_invalid":        "Authorization header must be a Bearer token",
		"error.token_invalid":              "Token is invalid or expired",
		"error.storage_unavailable":        "Storage is unavailable",
		"error.invalid_credentials":        "Invalid username or password",
		"error.signup_required":            "Email and first name are required",
		"error.email_required":             "Email is required",
		"error.email_invalid":              "Please enter a valid email address",
		"error.signup_failed":              "An error occurred. Please try again later.",
		"error.track_event_required":       "Email and event type are required",
		"error.track_page_view_required":   "Email and page URL are required",
		"error.event_type_invalid":         "Unknown event type",
		"error.event_data_invalid":         "Event data must be a map of simple values",
		"error.event_data_too_large":       "Event data is too large",
		"error.tracking_failed":            "Tracking failed",
		"error.page_view_failed":           "Page view tracking failed",
		"error.subscriber_not_found":       "Subscriber not found",
		"error.subscriber_id_invalid":      "Invalid subscriber id",
		"error.subscriber_ids_required":    "Subscriber IDs array is required",
		"error.subscriber_ids_too_many":    "Too many subscriber IDs in one request",
		"error.status_update_required":     "Email and status are required",
		"error.status_invalid":             "Status must be pending, confirmed or unsubscribed",
		"error.status_update_failed":       "Failed to update status",
		"error.directory_customer_missing": "Customer not found in directory",
		"error.directory_unavailable":      "Customer directory is unavailable",
		"error.soft_delete_not_applied":    "Subscriber not found or already deleted",
		"error.trash_not_found":            "Subscriber not found in trash",
		"error.captcha_required":           "Please complete the captcha",
		"error.captcha_invalid":            "Captcha verification failed",
		"error.captcha_config_invalid":     "Captcha is not configured correctly",
		"error.captcha_verify_failed":      "Captcha service is unavailable",
		"message.signup_success":           "Thank you for subscribing! Please check your email to confirm your subscription.",
		"message.already_subscribed":       "You're already subscribed to our newsletter.",
		"message.status_updated":           "Status updated successfully",
		"message.soft_deleted":             "Subscriber moved to trash successfully",
		"message.restored":                 "Subscriber restored successfully",
		"message.purged":                   "Subscriber permanently deleted",
		"message.bulk_soft_deleted":        "%d subscribers moved to trash successfully",
		"message.bulk_restored":            "%d subscribers restored successfully",
		"message.bulk_purged":              "%d subscribers permanently deleted",
		"message.bulk_synced":              "%d subscribers scheduled for directory sync",
		"message.logged_out":               "Logged out",
	},
	LocaleZhCN: {
		"error.bad_request":                "请求参数错误",
		"error.route_not_found":            "接口不存在",
		"error.unauthorized":               "未登录或登录已过期",
		"error.forbidden":                  "无权限访问",
		"error.too_many_requests":          "请求过于频繁，请稍后再试",
		"error.internal":                   "服务器内部错误",
		"error.rate_limited":               "尝试次数过多，请 %d 秒后重试",
		"error.rate_limit_unavailable":     "限流服务不可用",
		"error.auth_header_missing":        "缺少认证头",
		"error.auth_header_invalid":        "认证头格式错误",
		"error.token_invalid":              "令牌无效或已过期",
		"error.storage_unavailable":        "存储不可用",
		"error.invalid_credentials":        "用户名或密码错误",
		"error.signup_required":            "邮箱和名字不能为空",
		"error.email_required":             "邮箱不能为空",
		"error.email_invalid":              "邮箱格式不正确",
		"error.signup_failed":              "订阅失败，请稍后再试",
		"error.track_event_required":       "邮箱和事件类型不能为空",
		"error.track_page_view_required":   "邮箱和页面地址不能为空",
		"error.event_type_invalid":         "未知的事件类型",
		"error.event_data_invalid":         "事件数据格式不正确",
		"error.event_data_too_large":       "事件数据过大",
		"error.tracking_failed":            "事件上报失败",
		"error.page_view_failed":           "页面浏览上报失败",
		"error.subscriber_not_found":       "订阅者不存在",
		"error.subscriber_id_invalid":      "订阅者 ID 无效",
		"error.subscriber_ids_required":    "请提供订阅者 ID 列表",
		"error.subscriber_ids_too_many":    "单次操作的订阅者数量过多",
		"error.status_update_required":     "邮箱和状态不能为空",
		"error.status_invalid":             "状态必须为 pending、confirmed 或 unsubscribed",
		"error.status_update_failed":       "状态更新失败",
		"error.directory_customer_missing": "外部目录中不存在该客户",
		"error.directory_unavailable":      "外部客户目录暂不可用",
		"error.soft_delete_not_applied":    "订阅者不存在或已在回收站",
		"error.trash_not_found":            "回收站中不存在该订阅者",
		"error.captcha_required":           "请完成验证码",
		"error.captcha_invalid":            "验证码校验失败",
		"error.captcha_config_invalid":     "验证码配置错误",
		"error.captcha_verify_failed":      "验证码服务不可用",
		"message.signup_success":           "订阅成功！请查收确认邮件。",
		"message.already_subscribed":       "您已订阅过我们的邮件。",
		"message.status_updated":           "状态更新成功",
		"message.soft_deleted":             "已移入回收站",
		"message.restored":                 "已恢复",
		"message.purged":                   "已彻底删除",
		"message.bulk_soft_deleted":        "已将 %d 个订阅者移入回收站",
		"message.bulk_restored":            "已恢复 %d 个订阅者",
		"message.bulk_purged":              "已彻底删除 %d 个订阅者",
		"message.bulk_synced":              "已为 %d 个订阅者安排目录同步",
		"message.logged_out":               "已退出登录",
	},
}
