package admin

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/directory"
	handlershared "github.com/dujiao-next/newsletter-tracker/internal/http/handlers/shared"
	"github.com/dujiao-next/newsletter-tracker/internal/models"
	"github.com/dujiao-next/newsletter-tracker/internal/provider"
	"github.com/dujiao-next/newsletter-tracker/internal/repository"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type adminEnv struct {
	router  *gin.Engine
	store   repository.SubscriberStore
	handler *Handler
}

func setupAdminHandler(t *testing.T) *adminEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := repository.NewRedisSubscriberStore(client, "nt_admin")
	t.Cleanup(func() {
		_ = store.Close()
	})

	hash, err := service.HashPassword("secret-pass")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	cfg := &config.Config{
		Admin: config.AdminConfig{
			JWTSecret: "admin-handler-test-secret-0123456789abcdef",
			Accounts: []config.AdminAccount{
				{Username: "root", PasswordHash: hash, Role: constants.AdminRoleAdmin},
			},
		},
		Tracking: config.TrackingConfig{MaxPayloadKeys: 16, MaxPayloadBytes: 4096},
	}
	container, err := provider.NewContainerWith(cfg, store, directory.DisabledDirectory{})
	if err != nil {
		t.Fatalf("build container failed: %v", err)
	}
	h := New(container)

	r := gin.New()
	r.POST("/api/admin/login", h.AdminLogin)
	authed := r.Group("/api/admin", func(c *gin.Context) {
		c.Set(handlershared.AdminClaimsContextKey, &service.AdminClaims{Username: "root", Role: constants.AdminRoleAdmin})
		c.Next()
	})
	authed.GET("/me", h.AdminProfile)
	authed.GET("/roles", h.GetRoles)
	authed.GET("/subscribers", h.GetSubscribers)
	authed.GET("/subscribers/trash", h.GetTrashedSubscribers)
	authed.GET("/subscribers/stats", h.GetSubscriberStats)
	authed.GET("/subscribers/:id", h.GetSubscriber)
	authed.DELETE("/subscribers/:id", h.DeleteSubscriber)
	authed.POST("/subscribers/:id/restore", h.RestoreSubscriber)
	authed.DELETE("/subscribers/:id/permanent", h.PurgeSubscriber)
	authed.POST("/subscribers/bulk-delete", h.BulkDeleteSubscribers)
	authed.POST("/subscribers/bulk-restore", h.BulkRestoreSubscribers)
	authed.POST("/subscribers/bulk-permanent-delete", h.BulkPurgeSubscribers)
	return &adminEnv{router: r, store: store, handler: h}
}

func (env *adminEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
	}
	return w, resp
}

func (env *adminEnv) seed(t *testing.T, email string) uint {
	t.Helper()
	ctx := context.Background()
	sub := &models.Subscriber{Email: email, FirstName: "Seed"}
	if err := env.store.AddSubscriber(ctx, sub); err != nil {
		t.Fatalf("add subscriber failed: %v", err)
	}
	if err := env.store.AddBehavioralEvent(ctx, &models.BehavioralEvent{SubscriberID: sub.ID, EventType: constants.EventButtonClick}); err != nil {
		t.Fatalf("add event failed: %v", err)
	}
	return sub.ID
}

func TestAdminLogin(t *testing.T) {
	env := setupAdminHandler(t)

	w, resp := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "root", "password": "secret-pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %v", w.Code, resp)
	}
	data, _ := resp["data"].(map[string]interface{})
	if data == nil || data["token"] == "" {
		t.Fatalf("expected token in response, got %v", resp)
	}

	w, _ = env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "root", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password should be 401, got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "root"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password should be 400, got %d", w.Code)
	}
}

func TestAdminProfile(t *testing.T) {
	env := setupAdminHandler(t)
	w, resp := env.do(t, http.MethodGet, "/api/admin/me", nil)
	data, _ := resp["data"].(map[string]interface{})
	if w.Code != http.StatusOK || data["username"] != "root" || data["role"] != constants.AdminRoleAdmin {
		t.Fatalf("unexpected profile: %d %v", w.Code, resp)
	}
	capabilities, _ := data["capabilities"].(map[string]interface{})
	for _, name := range []string{"soft_delete", "restore", "sync", "purge"} {
		if capabilities[name] != true {
			t.Fatalf("admin should hold %s, got %v", name, capabilities)
		}
	}
}

func TestAdminProfileCapabilitiesFollowRole(t *testing.T) {
	env := setupAdminHandler(t)
	cases := []struct {
		role  string
		allow map[string]bool
	}{
		{constants.AdminRoleViewer, map[string]bool{"soft_delete": false, "restore": false, "sync": false, "purge": false}},
		{constants.AdminRoleOperator, map[string]bool{"soft_delete": true, "restore": true, "sync": true, "purge": false}},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/me", func(c *gin.Context) {
			c.Set(handlershared.AdminClaimsContextKey, &service.AdminClaims{Username: "someone", Role: tc.role})
			c.Next()
		}, env.handler.AdminProfile)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		var resp struct {
			Data struct {
				Capabilities map[string]bool `json:"capabilities"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		for name, want := range tc.allow {
			if resp.Data.Capabilities[name] != want {
				t.Fatalf("role %s capability %s want %v got %v", tc.role, name, want, resp.Data.Capabilities)
			}
		}
	}
}

func TestGetRolesListsBuiltinMatrix(t *testing.T) {
	env := setupAdminHandler(t)
	w, _ := env.do(t, http.MethodGet, "/api/admin/roles", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("roles failed: %d", w.Code)
	}
	var resp struct {
		Data []RoleView `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	byRole := make(map[string]RoleView, len(resp.Data))
	for _, view := range resp.Data {
		byRole[view.Role] = view
	}
	for _, role := range []string{"role:viewer", "role:operator", "role:admin"} {
		if _, ok := byRole[role]; !ok {
			t.Fatalf("role %s missing from %+v", role, resp.Data)
		}
	}
	if len(byRole["role:viewer"].Policies) != 2 || len(byRole["role:operator"].Policies) != 6 {
		t.Fatalf("unexpected direct policies: %+v", resp.Data)
	}
}

func TestSubscriberLifecycleEndpoints(t *testing.T) {
	env := setupAdminHandler(t)
	id := env.seed(t, "life@example.com")
	base := fmt.Sprintf("/api/admin/subscribers/%d", id)

	w, resp := env.do(t, http.MethodGet, "/api/admin/subscribers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list failed: %d", w.Code)
	}
	if items, _ := resp["data"].([]interface{}); len(items) != 1 {
		t.Fatalf("expected one active subscriber, got %v", resp["data"])
	}

	w, resp = env.do(t, http.MethodGet, base, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detail failed: %d", w.Code)
	}
	detail, _ := resp["data"].(map[string]interface{})
	if events, _ := detail["behavioral_events"].([]interface{}); len(events) != 1 {
		t.Fatalf("expected one event in detail, got %v", detail["behavioral_events"])
	}

	// 活跃记录不能直接彻底删除
	if w, _ = env.do(t, http.MethodDelete, base+"/permanent", nil); w.Code != http.StatusNotFound {
		t.Fatalf("purge of active subscriber should be 404, got %d", w.Code)
	}
	if w, _ = env.do(t, http.MethodPost, base+"/restore", nil); w.Code != http.StatusNotFound {
		t.Fatalf("restore of active subscriber should be 404, got %d", w.Code)
	}
	if w, _ = env.do(t, http.MethodDelete, base, nil); w.Code != http.StatusOK {
		t.Fatalf("soft delete failed: %d", w.Code)
	}
	if w, _ = env.do(t, http.MethodDelete, base, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second soft delete should be 404, got %d", w.Code)
	}

	w, resp = env.do(t, http.MethodGet, "/api/admin/subscribers/trash", nil)
	if items, _ := resp["data"].([]interface{}); w.Code != http.StatusOK || len(items) != 1 {
		t.Fatalf("trash should hold the subscriber, got %d %v", w.Code, resp["data"])
	}

	if w, _ = env.do(t, http.MethodPost, base+"/restore", nil); w.Code != http.StatusOK {
		t.Fatalf("restore failed: %d", w.Code)
	}
	if w, _ = env.do(t, http.MethodDelete, base, nil); w.Code != http.StatusOK {
		t.Fatalf("soft delete after restore failed: %d", w.Code)
	}
	if w, _ = env.do(t, http.MethodDelete, base+"/permanent", nil); w.Code != http.StatusOK {
		t.Fatalf("purge failed: %d", w.Code)
	}
	if w, _ = env.do(t, http.MethodGet, base, nil); w.Code != http.StatusNotFound {
		t.Fatalf("purged subscriber detail should be 404, got %d", w.Code)
	}
	if w, _ = env.do(t, http.MethodGet, "/api/admin/subscribers/abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id should be 400, got %d", w.Code)
	}
}

func TestBulkEndpoints(t *testing.T) {
	env := setupAdminHandler(t)
	first := env.seed(t, "b1@example.com")
	second := env.seed(t, "b2@example.com")

	w, resp := env.do(t, http.MethodPost, "/api/admin/subscribers/bulk-delete", map[string]interface{}{
		"subscriberIds": []uint{first, second, 9999},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk delete failed: %d %v", w.Code, resp)
	}
	if resp["processedCount"] != float64(2) || resp["totalRequested"] != float64(3) || resp["operation"] != service.OperationSoftDelete {
		t.Fatalf("unexpected bulk result: %v", resp)
	}

	w, resp = env.do(t, http.MethodPost, "/api/admin/subscribers/bulk-permanent-delete", map[string]interface{}{
		"subscriberIds": []uint{first},
	})
	if w.Code != http.StatusOK || resp["processedCount"] != float64(1) {
		t.Fatalf("bulk purge failed: %d %v", w.Code, resp)
	}

	w, resp = env.do(t, http.MethodPost, "/api/admin/subscribers/bulk-restore", map[string]interface{}{
		"subscriberIds": []uint{first, second},
	})
	if w.Code != http.StatusOK || resp["processedCount"] != float64(1) {
		t.Fatalf("bulk restore should only restore the trashed record: %d %v", w.Code, resp)
	}

	if w, _ = env.do(t, http.MethodPost, "/api/admin/subscribers/bulk-delete", map[string]interface{}{"subscriberIds": []uint{}}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty id list should be 400, got %d", w.Code)
	}

	w, resp = env.do(t, http.MethodGet, "/api/admin/subscribers/stats", nil)
	stats, _ := resp["data"].(map[string]interface{})
	if w.Code != http.StatusOK || stats["active_subscribers"] != float64(1) || stats["trashed_subscribers"] != float64(0) {
		t.Fatalf("unexpected stats: %d %v", w.Code, resp)
	}
}
