package public

import (
	"strings"

	"github.com/dujiao-next/newsletter-tracker/internal/http/handlers/shared"
	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// TrackEventRequest 行为事件上报
type TrackEventRequest struct {
	Email     string            `json:"email"`
	SessionID string            `json:"sessionId"`
	EventType string            `json:"eventType"`
	EventData interface{}       `json:"eventData"`
	PageURL   string            `json:"pageUrl"`
	PageTitle string            `json:"pageTitle"`
	Referrer  string            `json:"referrer"`
	Timestamp shared.ClientTime `json:"timestamp"`
}

// TrackPageViewRequest 页面浏览上报，timeSpent 单位为毫秒
type TrackPageViewRequest struct {
	Email     string            `json:"email"`
	SessionID string            `json:"sessionId"`
	PageURL   string            `json:"pageUrl"`
	PageTitle string            `json:"pageTitle"`
	TimeSpent float64           `json:"timeSpent"`
	Referrer  string            `json:"referrer"`
	Timestamp shared.ClientTime `json:"timestamp"`
}

// TrackEvent 记录行为事件
func (h *Handler) TrackEvent(c *gin.Context) {
	var req TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	err := h.SubscriberService.TrackEvent(c.Request.Context(), service.TrackEventInput{
		Email:     req.Email,
		SessionID: strings.TrimSpace(req.SessionID),
		EventType: strings.TrimSpace(req.EventType),
		EventData: req.EventData,
		PageURL:   req.PageURL,
		PageTitle: req.PageTitle,
		Referrer:  firstNonEmpty(req.Referrer, c.GetHeader("Referer")),
		Timestamp: req.Timestamp.Time,
	})
	if err != nil {
		respondTrackEventError(c, err)
		return
	}
	response.SuccessWithFields(c, "", nil)
}

// TrackPageView 记录页面浏览
func (h *Handler) TrackPageView(c *gin.Context) {
	var req TrackPageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	timeSpent := int64(req.TimeSpent)
	if timeSpent < 0 {
		timeSpent = 0
	}
	err := h.SubscriberService.TrackPageView(c.Request.Context(), service.TrackPageViewInput{
		Email:       req.Email,
		SessionID:   strings.TrimSpace(req.SessionID),
		PageURL:     strings.TrimSpace(req.PageURL),
		PageTitle:   req.PageTitle,
		TimeSpentMS: timeSpent,
		Referrer:    req.Referrer,
		Timestamp:   req.Timestamp.Time,
	})
	if err != nil {
		respondTrackPageViewError(c, err)
		return
	}
	response.SuccessWithFields(c, "", nil)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
