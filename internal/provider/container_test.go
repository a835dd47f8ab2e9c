package provider

import (
	"errors"
	"testing"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/directory"
	"github.com/dujiao-next/newsletter-tracker/internal/repository"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newContainerTestStore(t *testing.T) repository.SubscriberStore {
	t.Helper()
	mr := miniredis.RunT(t)
	store := repository.NewRedisSubscriberStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "nt_provider")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewContainerWithRejectsIncompleteTurnstileSetting(t *testing.T) {
	cfg := &config.Config{
		Captcha: config.CaptchaConfig{
			Provider: constants.CaptchaProviderTurnstile,
			Scenes:   config.CaptchaSceneConfig{NewsletterSignup: true},
		},
	}
	_, err := NewContainerWith(cfg, newContainerTestStore(t), directory.DisabledDirectory{})
	if !errors.Is(err, service.ErrCaptchaConfigInvalid) {
		t.Fatalf("expected ErrCaptchaConfigInvalid, got %v", err)
	}
}

func TestNewContainerWithBuildsServices(t *testing.T) {
	cfg := &config.Config{
		Admin: config.AdminConfig{
			JWTSecret: "provider-test-secret-0123456789abcdef",
			Accounts:  []config.AdminAccount{{Username: "ops", Role: constants.AdminRoleOperator}},
		},
		Captcha: config.CaptchaConfig{
			Provider:  constants.CaptchaProviderTurnstile,
			Turnstile: config.CaptchaTurnstileConfig{SiteKey: "site", SecretKey: "secret"},
		},
	}
	c, err := NewContainerWith(cfg, newContainerTestStore(t), directory.DisabledDirectory{})
	if err != nil {
		t.Fatalf("build container failed: %v", err)
	}
	if c.SubscriberService == nil || c.AdminSubscriberService == nil || c.CaptchaService == nil {
		t.Fatalf("services should be initialised: %+v", c)
	}
	allowed, err := c.AuthzService.EnforceAdmin("ops", "/api/admin/subscribers/1", "DELETE")
	if err != nil || !allowed {
		t.Fatalf("configured operator should be allowed to soft delete, allowed=%v err=%v", allowed, err)
	}
}
