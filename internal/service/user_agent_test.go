package service

import "testing"

func TestParseUserAgent(t *testing.T) {
	cases := []struct {
		name   string
		ua     string
		device string
		brow   string
		os     string
	}{
		{
			name:   "desktop chrome on windows",
			ua:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			device: "desktop", brow: "Chrome", os: "Windows",
		},
		{
			name:   "iphone safari",
			ua:     "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device: "mobile", brow: "Safari", os: "iOS",
		},
		{
			name:   "ipad is tablet",
			ua:     "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 Version/16.0 Mobile Safari/604.1",
			device: "tablet", brow: "Safari", os: "iOS",
		},
		{
			name:   "firefox on linux",
			ua:     "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			device: "desktop", brow: "Firefox", os: "Linux",
		},
		{
			name:   "chrome on android phone",
			ua:     "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			device: "mobile", brow: "Chrome", os: "Android",
		},
		{
			name:   "chromium edge on windows",
			ua:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91",
			device: "desktop", brow: "Edge", os: "Windows",
		},
		{
			name:   "safari on mac",
			ua:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			device: "desktop", brow: "Safari", os: "macOS",
		},
		{
			name:   "empty",
			ua:     "",
			device: "unknown", brow: "unknown", os: "unknown",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseUserAgent(tc.ua)
			if got.DeviceType != tc.device || got.Browser != tc.brow || got.OperatingSystem != tc.os {
				t.Fatalf("unexpected parse result: %+v", got)
			}
		})
	}
}
