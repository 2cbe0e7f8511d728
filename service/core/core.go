// Package core 组装引擎、代理模式和 PAC 服务，对外提供命令接口
package core

import (
	"context"
	"errors"
	"runtime"

	"github.com/raydesk/raydesk/pkg/config"
	"github.com/raydesk/raydesk/service/daemon"
	"github.com/raydesk/raydesk/service/engine"
	"github.com/raydesk/raydesk/service/pac"
	"github.com/raydesk/raydesk/service/sysproxy"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrNoDB             = errors.New("数据库不可用")
	ErrNoUser           = errors.New("没有已登录用户")
	ErrNoActiveEndpoint = errors.New("没有激活的节点")
	ErrUnknownMode      = errors.New("未知的代理模式")
	ErrInboundMissing   = errors.New("缺少入站配置")
)

// Core 应用上下文，所有命令都通过它执行
type Core struct {
	db     *gorm.DB
	log    *logrus.Logger
	cfg    *config.Config
	synth  *engine.Synthesizer
	sup    *daemon.Supervisor
	proxy  *sysproxy.Switch
	pacSrv *pac.Server
	goos   string
}

// New db 可以为 nil，此时所有依赖用户数据的命令返回 ErrNoDB
func New(db *gorm.DB, log *logrus.Logger, cfg *config.Config, sup *daemon.Supervisor, proxy *sysproxy.Switch, pacSrv *pac.Server) *Core {
	return &Core{
		db:     db,
		log:    log,
		cfg:    cfg,
		synth:  engine.NewSynthesizer(db, log),
		sup:    sup,
		proxy:  proxy,
		pacSrv: pacSrv,
		goos:   runtime.GOOS,
	}
}

func (c *Core) Supervisor() *daemon.Supervisor { return c.sup }

// ProxyMode 当前系统代理模式
func (c *Core) ProxyMode() string { return c.proxy.Mode() }

// PACURL PAC 服务地址，未运行时为空
func (c *Core) PACURL() string { return c.pacSrv.URL() }

// HandleEngineExit 引擎意外退出时由守护进程回调，纠正持久化的运行状态
func (c *Core) HandleEngineExit(code int) {
	c.log.Warnf("[Core] 引擎意外退出，退出码 %d", code)
	c.persistRunningState(context.Background(), "")
}
