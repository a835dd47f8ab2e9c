package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/constants"
)

func TestCaptchaSceneDisabledPasses(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Provider: "image"})
	if err := svc.Verify(context.Background(), constants.CaptchaSceneNewsletterSignup, CaptchaVerifyPayload{}, ""); err != nil {
		t.Fatalf("disabled scene should pass, got %v", err)
	}
}

func TestCaptchaUnknownProviderFallsBackToNone(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Provider: "recaptcha", Scenes: config.CaptchaSceneConfig{NewsletterSignup: true}})
	if svc.Setting().Provider != constants.CaptchaProviderNone {
		t.Fatalf("unexpected provider %s", svc.Setting().Provider)
	}
	if err := svc.Verify(context.Background(), constants.CaptchaSceneNewsletterSignup, CaptchaVerifyPayload{}, ""); err != nil {
		t.Fatalf("provider none never requires captcha, got %v", err)
	}
}

func TestCaptchaImageRequiresCode(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Provider: "image", Scenes: config.CaptchaSceneConfig{NewsletterSignup: true}})
	err := svc.Verify(context.Background(), constants.CaptchaSceneNewsletterSignup, CaptchaVerifyPayload{}, "")
	if !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("expected ErrCaptchaRequired, got %v", err)
	}

	challenge, err := svc.GenerateImageChallenge()
	if err != nil || challenge.CaptchaID == "" || challenge.ImageBase64 == "" {
		t.Fatalf("generate challenge failed: %+v %v", challenge, err)
	}
	err = svc.Verify(context.Background(), constants.CaptchaSceneNewsletterSignup, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: "wrong!"}, "")
	if !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("expected ErrCaptchaInvalid, got %v", err)
	}
}

func TestCaptchaTurnstileVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("secret") != "sec" || r.PostForm.Get("remoteip") != "1.2.3.4" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		if r.PostForm.Get("response") == "good" {
			_, _ = io.WriteString(w, `{"success":true}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":false,"error-codes":["invalid-input-response"]}`)
	}))
	defer server.Close()

	svc := NewCaptchaService(config.CaptchaConfig{
		Provider:  "turnstile",
		Scenes:    config.CaptchaSceneConfig{NewsletterSignup: true},
		Turnstile: config.CaptchaTurnstileConfig{SiteKey: "site", SecretKey: "sec", VerifyURL: server.URL},
	})
	if err := svc.Verify(context.Background(), constants.CaptchaSceneNewsletterSignup, CaptchaVerifyPayload{TurnstileToken: "good"}, "1.2.3.4"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	err := svc.Verify(context.Background(), constants.CaptchaSceneNewsletterSignup, CaptchaVerifyPayload{TurnstileToken: "bad"}, "1.2.3.4")
	if !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("expected ErrCaptchaInvalid, got %v", err)
	}
}

func TestValidateCaptchaSettingRequiresTurnstileKeys(t *testing.T) {
	setting := NewCaptchaSetting(config.CaptchaConfig{Provider: "turnstile"})
	if err := ValidateCaptchaSetting(setting); !errors.Is(err, ErrCaptchaConfigInvalid) {
		t.Fatalf("expected ErrCaptchaConfigInvalid, got %v", err)
	}
}
