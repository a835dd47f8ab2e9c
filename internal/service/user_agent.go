package service

import (
	"strings"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"

	"github.com/mssola/useragent"
)

const unknownAgentValue = "unknown"

// UserAgentInfo 从 User-Agent 解析出的设备信息
type UserAgentInfo struct {
	DeviceType      string
	Browser         string
	OperatingSystem string
}

// ParseUserAgent 解析 User-Agent，无法识别的字段为 unknown；爬虫不归入任何设备类型
func ParseUserAgent(userAgent string) UserAgentInfo {
	info := UserAgentInfo{
		DeviceType:      unknownAgentValue,
		Browser:         unknownAgentValue,
		OperatingSystem: unknownAgentValue,
	}
	if strings.TrimSpace(userAgent) == "" {
		return info
	}

	ua := useragent.New(userAgent)
	if name, _ := ua.Browser(); name != "" {
		info.Browser = name
	}
	info.OperatingSystem = operatingSystemName(ua)
	switch {
	case ua.Bot():
	case isTabletPlatform(ua.Platform()):
		info.DeviceType = constants.DeviceTypeTablet
	case ua.Mobile():
		info.DeviceType = constants.DeviceTypeMobile
	default:
		info.DeviceType = constants.DeviceTypeDesktop
	}
	return info
}

func isTabletPlatform(platform string) bool {
	return platform == "iPad"
}

// operatingSystemName 把解析库的系统名归一成展示名
func operatingSystemName(ua *useragent.UserAgent) string {
	switch ua.Platform() {
	case "iPhone", "iPad", "iPod", "iPod touch":
		return "iOS"
	}
	name := strings.TrimSpace(ua.OSInfo().Name)
	switch {
	case name == "":
		return unknownAgentValue
	case strings.HasPrefix(name, "Android"):
		return "Android"
	case strings.HasPrefix(name, "Windows"):
		return "Windows"
	case strings.Contains(name, "Mac OS X"):
		return "macOS"
	case name == "CrOS":
		return "ChromeOS"
	default:
		return name
	}
}
