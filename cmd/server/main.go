package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/dujiao-next/newsletter-tracker/internal/app"
	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiBlue      = "\033[34m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isWeakSecret(cfg.Admin.JWTSecret) {
			stdLog.Fatalf("管理端 JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
		if len(cfg.Admin.Accounts) == 0 {
			stdLog.Printf("警告: 未配置管理员账号，后台接口将无法登录")
		}
	} else if isWeakSecret(cfg.Admin.JWTSecret) {
		stdLog.Printf("警告: 管理端 JWT secret 过弱或仍为默认值，建议在生产环境中更换")
	}
	if !cfg.Directory.Enabled() {
		stdLog.Printf("警告: 未配置 Shopify 客户目录，注册与状态对账仅写入本地存储")
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║              📬 Newsletter Tracker API 启动中               ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + "  signup  ·  track  ·  reconcile  ·  admin" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "Endpoints" + ansiReset)
	fmt.Println(ansiBlue + "• Public:  /api/newsletter/signup, /api/track/*" + ansiReset)
	fmt.Println(ansiBlue + "• Admin:   /api/admin/*" + ansiReset)
	fmt.Println(ansiBlue + "• Ops:     /health, /metrics" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
