package public

import (
	"strings"

	"github.com/dujiao-next/newsletter-tracker/internal/http/handlers/shared"
	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/i18n"
	"github.com/dujiao-next/newsletter-tracker/internal/provider"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler 店铺前台脚本调用的采集接口，不做身份认证
type Handler struct {
	*provider.Container
}

func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// BufferedEventRequest 身份确认前缓存在浏览器中的事件
type BufferedEventRequest struct {
	Type      string            `json:"type"`
	Data      interface{}       `json:"data"`
	PageURL   string            `json:"pageUrl"`
	PageTitle string            `json:"pageTitle"`
	Timestamp shared.ClientTime `json:"timestamp"`
}

// DeviceDataRequest 浏览器设备信息
type DeviceDataRequest struct {
	ScreenResolution string `json:"screenResolution"`
	Viewport         string `json:"viewport"`
	Timezone         string `json:"timezone"`
	Language         string `json:"language"`
	Platform         string `json:"platform"`
}

// LocationDataRequest 浏览器侧 IP 定位结果
type LocationDataRequest struct {
	Country         string `json:"country"`
	CountryCode     string `json:"countryCode"`
	Region          string `json:"region"`
	City            string `json:"city"`
	Timezone        string `json:"timezone"`
	IP              string `json:"ip"`
	Postal          string `json:"postal"`
	DetectionMethod string `json:"detectionMethod"`
}

// SignupRequest 邮件订阅请求
type SignupRequest struct {
	signupCaptchaFields
	Email          string                 `json:"email"`
	FirstName      string                 `json:"firstName"`
	SessionID      string                 `json:"sessionId"`
	SectionID      string                 `json:"sectionId"`
	Source         string                 `json:"source"`
	PageURL        string                 `json:"pageUrl"`
	PageTitle      string                 `json:"pageTitle"`
	BehavioralData []BufferedEventRequest `json:"behavioralData"`
	DeviceData     *DeviceDataRequest     `json:"deviceData"`
	LocationData   *LocationDataRequest   `json:"locationData"`
}

// UpdateStatusRequest 订阅状态更新请求
type UpdateStatusRequest struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

// SyncDirectoryRequest 目录对账请求
type SyncDirectoryRequest struct {
	Email string `json:"email"`
}

// Signup 邮件订阅
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	result, err := h.SubscriberService.Signup(c.Request.Context(), req.toServiceInput(c))
	if err != nil {
		respondSignupError(c, err)
		return
	}

	locale := i18n.ResolveLocale(c)
	if result.AlreadySubscribed {
		response.SuccessWithFields(c, i18n.T(locale, "message.already_subscribed"), gin.H{
			"alreadySubscribed": true,
		})
		return
	}
	response.SuccessWithFields(c, i18n.T(locale, "message.signup_success"), gin.H{
		"newSubscriber": true,
		"subscriberId":  result.SubscriberID,
	})
}

func (req SignupRequest) toServiceInput(c *gin.Context) service.SignupInput {
	input := service.SignupInput{
		Email:     req.Email,
		FirstName: strings.TrimSpace(req.FirstName),
		SessionID: strings.TrimSpace(req.SessionID),
		SectionID: strings.TrimSpace(req.SectionID),
		Source:    strings.TrimSpace(req.Source),
		Captcha:   req.signupCaptchaFields.payload(),
		ClientIP:  shared.ClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Referrer:  c.GetHeader("Referer"),
		PageURL:   strings.TrimSpace(req.PageURL),
		PageTitle: strings.TrimSpace(req.PageTitle),
	}
	if req.DeviceData != nil {
		input.Device = service.DeviceData{
			ScreenResolution: req.DeviceData.ScreenResolution,
			Viewport:         req.DeviceData.Viewport,
			Timezone:         req.DeviceData.Timezone,
			Language:         req.DeviceData.Language,
			Platform:         req.DeviceData.Platform,
		}
	}
	if req.LocationData != nil {
		input.Location = service.LocationData{
			Country:         req.LocationData.Country,
			CountryCode:     req.LocationData.CountryCode,
			Region:          req.LocationData.Region,
			City:            req.LocationData.City,
			Timezone:        req.LocationData.Timezone,
			IP:              req.LocationData.IP,
			Postal:          req.LocationData.Postal,
			DetectionMethod: req.LocationData.DetectionMethod,
		}
	}
	if len(req.BehavioralData) > 0 {
		input.BehavioralData = make([]service.BufferedEvent, 0, len(req.BehavioralData))
		for _, event := range req.BehavioralData {
			input.BehavioralData = append(input.BehavioralData, service.BufferedEvent{
				Type:      strings.TrimSpace(event.Type),
				Data:      event.Data,
				PageURL:   event.PageURL,
				PageTitle: event.PageTitle,
				Timestamp: event.Timestamp.Time,
			})
		}
	}
	return input
}

// UpdateSubscriptionStatus 按邮箱更新订阅状态
// 找不到订阅者时同样返回成功，updated 标记是否实际更新
func (h *Handler) UpdateSubscriptionStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	updated, err := h.SubscriberService.UpdateSubscriptionStatus(c.Request.Context(), req.Email, req.Status)
	if err != nil {
		shared.RespondWithMappedError(c, err, nil, response.CodeInternal, "error.status_update_failed")
		return
	}
	response.SuccessWithFields(c, i18n.T(i18n.ResolveLocale(c), "message.status_updated"), gin.H{
		"updated": updated,
	})
}

// SyncDirectoryStatus 以外部客户目录为准同步订阅状态
func (h *Handler) SyncDirectoryStatus(c *gin.Context) {
	var req SyncDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.SubscriberService.SyncDirectoryStatus(c.Request.Context(), req.Email)
	if err != nil {
		respondDirectorySyncError(c, err)
		return
	}
	fields := gin.H{
		"status":  result.Status,
		"updated": result.Updated,
	}
	if result.Customer != nil {
		fields["customer"] = gin.H{
			"id":                result.Customer.ID,
			"email":             result.Customer.Email,
			"accepts_marketing": result.Customer.AcceptsMarketing,
		}
	}
	response.SuccessWithFields(c, "", fields)
}
