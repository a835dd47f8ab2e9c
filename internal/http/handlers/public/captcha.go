package public

import (
	"errors"
	"strings"

	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// signupCaptchaFields 订阅表单携带的验证码字段
// 页脚表单把 Turnstile 令牌放在 captchaToken，独立页面使用 turnstile_token
type signupCaptchaFields struct {
	CaptchaID      string `json:"captcha_id"`
	CaptchaCode    string `json:"captcha_code"`
	TurnstileToken string `json:"turnstile_token"`
	CaptchaToken   string `json:"captchaToken"`
}

func (f signupCaptchaFields) payload() service.CaptchaVerifyPayload {
	token := strings.TrimSpace(f.TurnstileToken)
	if token == "" {
		token = strings.TrimSpace(f.CaptchaToken)
	}
	return service.CaptchaVerifyPayload{
		CaptchaID:      strings.TrimSpace(f.CaptchaID),
		CaptchaCode:    strings.TrimSpace(f.CaptchaCode),
		TurnstileToken: token,
	}
}

// GetCaptchaConfig 获取前台可见的验证码配置
func (h *Handler) GetCaptchaConfig(c *gin.Context) {
	if h.CaptchaService == nil {
		response.Success(c, gin.H{"provider": "none"})
		return
	}
	response.Success(c, h.CaptchaService.GetPublicSetting())
}

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if h.CaptchaService == nil {
		respondError(c, response.CodeInternal, "error.captcha_config_invalid", service.ErrCaptchaConfigInvalid)
		return
	}

	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaptchaConfigInvalid):
			respondError(c, response.CodeBadRequest, "error.captcha_config_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.captcha_verify_failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}
