package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raydesk/raydesk/api/handlers"
	"github.com/raydesk/raydesk/api/middleware"
	"github.com/raydesk/raydesk/pkg/config"
	"github.com/raydesk/raydesk/service/core"
	"github.com/sirupsen/logrus"
)

// RouterOptions 路由选项
type RouterOptions struct {
	Log      *logrus.Logger
	Config   *config.Config
	Core     *core.Core
	Auth     *middleware.LocalAuth
	Registry *prometheus.Registry
}

// NewRouter 创建路由
func NewRouter(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())

	// 指标（无需认证，只监听回环地址）
	if opts.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	// 需要认证的路由
	auth := r.Group("/api/v1")
	auth.Use(opts.Auth.Middleware())

	// 引擎
	daemonHandler := handlers.NewDaemonHandler(opts.Log, opts.Core)
	auth.POST("/daemon/start", daemonHandler.Start)
	auth.POST("/daemon/stop", daemonHandler.Stop)
	auth.GET("/daemon/status", daemonHandler.Status)
	auth.GET("/daemon/stats", daemonHandler.Stats)
	auth.POST("/daemon/inject", daemonHandler.Inject)

	// 系统代理
	proxyHandler := handlers.NewProxyHandler(opts.Log, opts.Core)
	auth.POST("/proxy/pac", proxyHandler.SetupPAC)
	auth.DELETE("/proxy/pac", proxyHandler.UnsetPAC)
	auth.POST("/proxy/global", proxyHandler.SetupGlobal)
	auth.DELETE("/proxy/global", proxyHandler.UnsetGlobal)
	auth.POST("/proxy/mode", proxyHandler.SwitchMode)
	auth.GET("/proxy/command", proxyHandler.Command)
	auth.POST("/endpoints/switch", proxyHandler.SwitchEndpoint)
	auth.POST("/service/toggle", proxyHandler.Toggle)

	// 系统信息
	sysHandler := handlers.NewSystemHandler(opts.Log, opts.Config, opts.Core)
	auth.GET("/system/info", sysHandler.GetInfo)
	auth.POST("/system/restart", sysHandler.Restart)

	return r
}
