package service

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/models"
)

const defaultTurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// CaptchaSetting 归一化后的验证码配置
type CaptchaSetting struct {
	Provider  string
	Scenes    config.CaptchaSceneConfig
	Image     config.CaptchaImageConfig
	Turnstile config.CaptchaTurnstileConfig
}

// IsSceneEnabled 场景是否需要验证码
func (s CaptchaSetting) IsSceneEnabled(scene string) bool {
	if s.Provider == constants.CaptchaProviderNone {
		return false
	}
	switch strings.TrimSpace(scene) {
	case constants.CaptchaSceneNewsletterSignup:
		return s.Scenes.NewsletterSignup
	default:
		return false
	}
}

// NewCaptchaSetting 由静态配置生成归一化的验证码设置
func NewCaptchaSetting(cfg config.CaptchaConfig) CaptchaSetting {
	setting := CaptchaSetting{
		Provider:  strings.ToLower(strings.TrimSpace(cfg.Provider)),
		Scenes:    cfg.Scenes,
		Image:     cfg.Image,
		Turnstile: cfg.Turnstile,
	}
	switch setting.Provider {
	case constants.CaptchaProviderImage, constants.CaptchaProviderTurnstile, constants.CaptchaProviderNone:
	default:
		setting.Provider = constants.CaptchaProviderNone
	}

	if setting.Image.Length < 4 || setting.Image.Length > 8 {
		setting.Image.Length = 5
	}
	if setting.Image.Width < 100 {
		setting.Image.Width = 240
	}
	if setting.Image.Height < 40 {
		setting.Image.Height = 80
	}
	if setting.Image.NoiseCount < 0 {
		setting.Image.NoiseCount = 2
	}
	if setting.Image.ShowLine < 0 {
		setting.Image.ShowLine = 2
	}
	if setting.Image.ExpireSeconds < 30 || setting.Image.ExpireSeconds > 3600 {
		setting.Image.ExpireSeconds = 300
	}
	if setting.Image.MaxStore < 100 {
		setting.Image.MaxStore = 10240
	}

	setting.Turnstile.SiteKey = strings.TrimSpace(setting.Turnstile.SiteKey)
	setting.Turnstile.SecretKey = strings.TrimSpace(setting.Turnstile.SecretKey)
	setting.Turnstile.VerifyURL = strings.TrimSpace(setting.Turnstile.VerifyURL)
	if setting.Turnstile.VerifyURL == "" {
		setting.Turnstile.VerifyURL = defaultTurnstileVerifyURL
	}
	if setting.Turnstile.TimeoutMS <= 0 {
		setting.Turnstile.TimeoutMS = 2000
	}
	return setting
}

// ValidateCaptchaSetting 启动时校验验证码配置
func ValidateCaptchaSetting(setting CaptchaSetting) error {
	if setting.Provider == constants.CaptchaProviderTurnstile {
		if setting.Turnstile.SiteKey == "" {
			return fmt.Errorf("%w: turnstile site key is empty", ErrCaptchaConfigInvalid)
		}
		if setting.Turnstile.SecretKey == "" {
			return fmt.Errorf("%w: turnstile secret key is empty", ErrCaptchaConfigInvalid)
		}
	}
	if setting.Turnstile.TimeoutMS < 500 || setting.Turnstile.TimeoutMS > 10000 {
		return fmt.Errorf("%w: turnstile timeout must be within 500-10000ms", ErrCaptchaConfigInvalid)
	}
	return nil
}

// PublicCaptchaSetting 可下发给前端的验证码配置
func PublicCaptchaSetting(setting CaptchaSetting) models.JSON {
	return models.JSON{
		"provider": setting.Provider,
		"scenes": models.JSON{
			constants.CaptchaSceneNewsletterSignup: setting.IsSceneEnabled(constants.CaptchaSceneNewsletterSignup),
		},
		"turnstile": models.JSON{
			"site_key": setting.Turnstile.SiteKey,
		},
	}
}
