package public

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/directory"
	"github.com/dujiao-next/newsletter-tracker/internal/provider"
	"github.com/dujiao-next/newsletter-tracker/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type testEnv struct {
	router *gin.Engine
	store  repository.SubscriberStore
	mr     *miniredis.Miniredis
}

func setupPublicHandler(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := repository.NewRedisSubscriberStore(client, "nt_public")
	t.Cleanup(func() {
		_ = store.Close()
	})
	cfg := &config.Config{
		Tracking: config.TrackingConfig{MaxPayloadKeys: 16, MaxPayloadBytes: 4096},
	}
	container, err := provider.NewContainerWith(cfg, store, directory.DisabledDirectory{})
	if err != nil {
		t.Fatalf("build container failed: %v", err)
	}
	h := New(container)

	r := gin.New()
	r.GET("/health", h.Health)
	r.POST("/api/newsletter/signup", h.Signup)
	r.POST("/api/track/event", h.TrackEvent)
	r.POST("/api/track/page-view", h.TrackPageView)
	r.POST("/api/update-subscription-status", h.UpdateSubscriptionStatus)
	r.POST("/api/sync-directory-status", h.SyncDirectoryStatus)
	return &testEnv{router: r, store: store, mr: mr}
}

func (env *testEnv) post(t *testing.T, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148 Safari/604.1")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
	}
	return w, resp
}

func TestSignupCreatesSubscriberAndDrainsBufferedEvents(t *testing.T) {
	env := setupPublicHandler(t)

	w, resp := env.post(t, "/api/newsletter/signup", map[string]interface{}{
		"email":     "New@Example.com",
		"firstName": "Nia",
		"sessionId": "sess-42",
		"behavioralData": []map[string]interface{}{
			{"type": constants.EventScrollDepth, "data": map[string]interface{}{"depth": 50}, "pageUrl": "/", "timestamp": 1700000000000},
			{"type": constants.EventButtonClick, "data": map[string]interface{}{"text": "Shop"}, "pageUrl": "/", "timestamp": "2024-01-01T00:00:00Z"},
		},
		"deviceData":   map[string]interface{}{"screenResolution": "390x844", "timezone": "Europe/Paris"},
		"locationData": map[string]interface{}{"country": "France", "city": "Paris"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d body=%s", w.Code, w.Body.String())
	}
	if resp["newSubscriber"] != true || resp["success"] != true {
		t.Fatalf("expected newSubscriber response, got %v", resp)
	}

	sub, err := env.store.GetSubscriberByEmail(context.Background(), "new@example.com")
	if err != nil || sub == nil {
		t.Fatalf("subscriber not stored: %+v %v", sub, err)
	}
	detail, err := env.store.GetSubscriberDetail(context.Background(), sub.ID)
	if err != nil || detail == nil {
		t.Fatalf("detail failed: %v", err)
	}
	if len(detail.BehavioralEvents) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(detail.BehavioralEvents))
	}
	if detail.DeviceLocation == nil || detail.DeviceLocation.DeviceType != "mobile" || detail.DeviceLocation.City != "Paris" {
		t.Fatalf("unexpected snapshot: %+v", detail.DeviceLocation)
	}

	w, resp = env.post(t, "/api/newsletter/signup", map[string]interface{}{"email": "new@example.com", "firstName": "Nia"})
	if w.Code != http.StatusOK || resp["alreadySubscribed"] != true {
		t.Fatalf("second signup should report alreadySubscribed, got %d %v", w.Code, resp)
	}
}

func TestSignupRejectsInvalidInput(t *testing.T) {
	env := setupPublicHandler(t)

	cases := []map[string]interface{}{
		{"email": "", "firstName": "A"},
		{"email": "not-an-email", "firstName": "A"},
		{"email": "a@example.com", "firstName": ""},
	}
	for _, body := range cases {
		w, resp := env.post(t, "/api/newsletter/signup", body)
		if w.Code != http.StatusBadRequest || resp["success"] != false {
			t.Fatalf("body %v: expected 400, got %d %v", body, w.Code, resp)
		}
	}
}

func TestSignupValidationErrorNamesField(t *testing.T) {
	env := setupPublicHandler(t)
	w, resp := env.post(t, "/api/newsletter/signup", map[string]interface{}{"email": "not-an-email", "firstName": "A"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %v", w.Code, resp)
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok || data["field"] != "email" {
		t.Fatalf("validation error should name the email field, got %v", resp)
	}
}

func TestTrackEndpoints(t *testing.T) {
	env := setupPublicHandler(t)
	if w, _ := env.post(t, "/api/newsletter/signup", map[string]interface{}{"email": "track@example.com", "firstName": "T"}); w.Code != http.StatusOK {
		t.Fatalf("signup failed: %d", w.Code)
	}

	w, resp := env.post(t, "/api/track/event", map[string]interface{}{
		"email":     "TRACK@example.com",
		"sessionId": "s1",
		"eventType": constants.EventAddToCartClick,
		"eventData": `{"product":"notebook"}`,
		"pageUrl":   "/products/notebook",
		"timestamp": 1700000000000,
	})
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("track event failed: %d %v", w.Code, resp)
	}

	w, _ = env.post(t, "/api/track/page-view", map[string]interface{}{
		"email":     "track@example.com",
		"pageUrl":   "/collections/all",
		"timeSpent": 15234.7,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("track page view failed: %d %s", w.Code, w.Body.String())
	}

	sub, _ := env.store.GetSubscriberByEmail(context.Background(), "track@example.com")
	detail, _ := env.store.GetSubscriberDetail(context.Background(), sub.ID)
	if len(detail.PageViews) != 1 || detail.PageViews[0].TimeSpentMS != 15234 {
		t.Fatalf("unexpected page views: %+v", detail.PageViews)
	}

	w, resp = env.post(t, "/api/track/event", map[string]interface{}{
		"email":     "stranger@example.com",
		"eventType": constants.EventButtonClick,
	})
	if w.Code != http.StatusNotFound || resp["success"] != false {
		t.Fatalf("unknown email should be 404, got %d %v", w.Code, resp)
	}

	w, _ = env.post(t, "/api/track/event", map[string]interface{}{
		"email":     "track@example.com",
		"eventType": "totally_made_up",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown event type should be 400, got %d", w.Code)
	}
}

func TestUpdateSubscriptionStatus(t *testing.T) {
	env := setupPublicHandler(t)
	env.post(t, "/api/newsletter/signup", map[string]interface{}{"email": "status@example.com", "firstName": "S"})

	w, resp := env.post(t, "/api/update-subscription-status", map[string]interface{}{"email": "status@example.com", "status": "confirmed"})
	if w.Code != http.StatusOK || resp["updated"] != true {
		t.Fatalf("expected update, got %d %v", w.Code, resp)
	}
	w, resp = env.post(t, "/api/update-subscription-status", map[string]interface{}{"email": "nobody@example.com", "status": "confirmed"})
	if w.Code != http.StatusOK || resp["updated"] != false {
		t.Fatalf("unknown email should succeed with updated=false, got %d %v", w.Code, resp)
	}
	w, _ = env.post(t, "/api/update-subscription-status", map[string]interface{}{"email": "status@example.com", "status": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid status should be 400, got %d", w.Code)
	}
}

func TestSyncDirectoryStatusWithoutDirectory(t *testing.T) {
	env := setupPublicHandler(t)
	w, resp := env.post(t, "/api/sync-directory-status", map[string]interface{}{"email": "x@example.com"})
	if w.Code != http.StatusNotFound || resp["success"] != false {
		t.Fatalf("disabled directory should report customer missing, got %d %v", w.Code, resp)
	}
}

func TestHealth(t *testing.T) {
	env := setupPublicHandler(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	env.mr.Close()
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after store outage, got %d", w.Code)
	}
}
