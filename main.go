package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/raydesk/raydesk/api"
	"github.com/raydesk/raydesk/api/middleware"
	"github.com/raydesk/raydesk/model"
	"github.com/raydesk/raydesk/pkg/config"
	"github.com/raydesk/raydesk/pkg/logger"
	"github.com/raydesk/raydesk/service/core"
	"github.com/raydesk/raydesk/service/daemon"
	"github.com/raydesk/raydesk/service/pac"
	"github.com/raydesk/raydesk/service/sysproxy"
	"gorm.io/gorm"
)

// Version 由构建时 ldflags 注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	addr    = flag.String("addr", "", "本地 API 监听地址，默认 "+config.DefaultAPIAddr)
	dataDir = flag.String("data", "./data", "数据目录")
	debug   = flag.Bool("debug", false, "输出调试日志")
)

// loadFlagsFromEnv 用 RAYDESK_<FLAG> 环境变量覆盖命令行参数，返回需要记录的日志
func loadFlagsFromEnv() []string {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	var notes []string

	flag.VisitAll(func(f *flag.Flag) {
		envName := "RAYDESK_" + strings.ToUpper(replacer.Replace(f.Name))
		if value, ok := os.LookupEnv(envName); ok {
			if err := flag.Set(f.Name, value); err != nil {
				notes = append(notes, fmt.Sprintf("环境变量 %s=%q 无法设置参数 -%s: %v", envName, value, f.Name, err))
			} else {
				notes = append(notes, fmt.Sprintf("参数 -%s 已从环境变量 %s 加载", f.Name, envName))
			}
		}
	})
	return notes
}

func main() {
	flag.Parse()
	envNotes := loadFlagsFromEnv()

	// 确保数据目录存在
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "创建数据目录失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化配置
	cfg := config.Init(*dataDir)
	cfg.Version = Version
	cfg.Debug = cfg.Debug || *debug
	if *addr != "" {
		cfg.APIAddr = *addr
	}

	// 初始化日志
	log := logger.Init(cfg.Debug, cfg.LogDir)
	defer logger.Close()
	log.Infof("RayDesk %s (%s) 启动中...", Version, BuildTime)
	for _, note := range envNotes {
		log.Info(note)
	}
	if cfg.EnvFileError != nil {
		log.Warnf("加载 .env 失败: %v", cfg.EnvFileError)
	}

	// 数据库由界面进程维护，打不开时按无用户处理
	var db *gorm.DB
	if d, err := model.InitDB(*dataDir); err != nil {
		log.Errorf("数据库初始化失败，将以无用户状态运行: %v", err)
	} else {
		db = d
		log.Infof("数据库: %s", cfg.DBPath)
	}

	var app *core.Core
	sup := daemon.NewSupervisor(log, daemon.Options{
		Binary:     cfg.EngineBinary,
		ConfigPath: cfg.ConfigPath,
		EngineName: cfg.EngineName,
		Lister:     daemon.PsutilLister{},
		OnExit: func(code int) {
			app.HandleEngineExit(code)
		},
	})
	proxySwitch := sysproxy.NewSwitch(sysproxy.NewBackend(runtime.GOOS, sysproxy.ExecRunner{}), log)
	app = core.New(db, log, cfg, sup, proxySwitch, pac.NewServer(log))

	// 命令接口可用前先校正状态
	core.NewReconciler(app).Run(context.Background())

	var resyncer *core.Resyncer
	if db != nil {
		r, err := core.NewResyncer(app, log, cfg.ResyncSpec)
		if err != nil {
			log.Errorf("状态校正任务启动失败: %v", err)
		} else {
			resyncer = r
		}
	}

	auth, err := middleware.NewLocalAuth()
	if err != nil {
		log.Fatalf("初始化认证失败: %v", err)
	}
	if err := auth.WriteToken(cfg.TokenPath); err != nil {
		log.Fatalf("写入令牌文件失败: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		daemon.NewCollector(sup, "raydesk"),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 设置 Gin 模式
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	router := api.NewRouter(api.RouterOptions{
		Log:      log,
		Config:   cfg,
		Core:     app,
		Auth:     auth,
		Registry: reg,
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "接口不存在"})
	})

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 优雅关闭
	go func() {
		log.Infof("RayDesk 已启动，监听 http://%s", cfg.APIAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭 RayDesk...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if resyncer != nil {
		resyncer.Stop()
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务关闭出错: %v", err)
	}
	// 恢复系统代理并终止引擎
	if err := app.Shutdown(ctx); err != nil {
		log.Errorf("清理代理状态出错: %v", err)
	}
	os.Remove(cfg.TokenPath)

	log.Info("RayDesk 已关闭")
}
