package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// webviewOrigins 界面进程 webview 可能使用的来源
var webviewOrigins = map[string]bool{
	"tauri://localhost":       true,
	"http://tauri.localhost":  true,
	"https://tauri.localhost": true,
	"http://localhost:1420":   true,
}

// AllowedOrigin 判断来源是否为界面进程的 webview
func AllowedOrigin(origin string) bool {
	return webviewOrigins[origin]
}

// CORS 允许界面进程的 webview 跨域访问本地接口
// tauri:// 不是 http(s) 来源，不能放进 AllowOrigins，统一走 AllowOriginFunc
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  AllowedOrigin,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
