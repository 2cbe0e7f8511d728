package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raydesk/raydesk/pkg/config"
	"github.com/raydesk/raydesk/pkg/sysutil"
	"github.com/raydesk/raydesk/service/core"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/sirupsen/logrus"
)

// SystemHandler 系统信息处理器
type SystemHandler struct {
	log    *logrus.Logger
	config *config.Config
	core   *core.Core
}

func NewSystemHandler(log *logrus.Logger, cfg *config.Config, c *core.Core) *SystemHandler {
	return &SystemHandler{log: log, config: cfg, core: c}
}

// startTime 记录程序启动时间
var startTime = time.Now()

// GetInfo 获取系统信息
func (h *SystemHandler) GetInfo(c *gin.Context) {
	hostname, _ := os.Hostname()
	data := gin.H{
		"hostname":   hostname,
		"version":    h.config.Version,
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"go_version": runtime.Version(),
		"uptime":     uint64(time.Since(startTime).Seconds()),
		"is_admin":   sysutil.IsAdmin(),
		"proxy_mode": h.core.ProxyMode(),
		"pac_url":    h.core.PACURL(),
	}
	if hostInfo, err := host.InfoWithContext(c.Request.Context()); err == nil {
		data["platform"] = hostInfo.Platform
		data["platform_version"] = hostInfo.PlatformVersion
		data["kernel_version"] = hostInfo.KernelVersion
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": data})
}

// Restart 清理全部状态后按用户设置重新启动
func (h *SystemHandler) Restart(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if err := h.core.GracefulRestart(c.Request.Context(), req.UserID); err != nil {
		h.log.Warnf("[API] 重启过程中出现错误: %v", err)
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"running": h.core.CheckDaemonStatus()}})
}
