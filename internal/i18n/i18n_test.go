package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"":                         LocaleEnUS,
		"zh-CN":                    LocaleZhCN,
		"zh":                       LocaleZhCN,
		"en-GB,en;q=0.9":           LocaleEnUS,
		"fr-FR,zh-Hans;q=0.8":      LocaleZhCN,
		"not a tag at all;;q=oops": LocaleEnUS,
	}
	for raw, want := range cases {
		if got := NormalizeLocale(raw); got != want {
			t.Fatalf("NormalizeLocale(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestResolveLocalePrefersQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/health?lang=zh-CN", nil)
	c.Request.Header.Set("Accept-Language", "en-US")
	if got := ResolveLocale(c); got != LocaleZhCN {
		t.Fatalf("expected zh-CN, got %s", got)
	}
}

func TestTFallsBack(t *testing.T) {
	if got := T(LocaleZhCN, "error.subscriber_not_found"); got != "订阅者不存在" {
		t.Fatalf("unexpected zh message %q", got)
	}
	if got := T("xx", "error.subscriber_not_found"); got != "Subscriber not found" {
		t.Fatalf("unknown locale should fall back to default, got %q", got)
	}
	if got := T(LocaleEnUS, "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("missing key should return key, got %q", got)
	}
	if got := Sprintf(LocaleEnUS, "message.bulk_purged", 3); got != "3 subscribers permanently deleted" {
		t.Fatalf("unexpected sprintf %q", got)
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range catalogs[LocaleEnUS] {
		if _, ok := catalogs[LocaleZhCN][key]; !ok {
			t.Fatalf("zh-CN catalog missing %s", key)
		}
	}
}
