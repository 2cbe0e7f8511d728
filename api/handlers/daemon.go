package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/raydesk/raydesk/service/core"
	"github.com/raydesk/raydesk/service/engine"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

// DaemonHandler 引擎进程相关命令
type DaemonHandler struct {
	log  *logrus.Logger
	core *core.Core
}

func NewDaemonHandler(log *logrus.Logger, c *core.Core) *DaemonHandler {
	return &DaemonHandler{log: log, core: c}
}

func (h *DaemonHandler) Start(c *gin.Context) {
	if err := h.core.StartDaemonE(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"running": true}, "message": "引擎已启动"})
}

func (h *DaemonHandler) Stop(c *gin.Context) {
	if err := h.core.StopDaemonE(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"running": false}, "message": "引擎已停止"})
}

func (h *DaemonHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"running": h.core.CheckDaemonStatus()}})
}

// Stats 运行计数，引擎运行时附带进程 CPU 和内存占用
func (h *DaemonHandler) Stats(c *gin.Context) {
	st := h.core.Supervisor().Stats()
	data := gin.H{
		"running":          st.Running,
		"healthy":          st.Healthy,
		"pid":              st.Pid,
		"starts":           st.Starts,
		"stops":            st.Stops,
		"unexpected_exits": st.UnexpectedExits,
		"failures":         st.Failures,
		"strays_killed":    st.StraysKilled,
	}
	if st.Pid != 0 {
		ctx := c.Request.Context()
		if p, err := process.NewProcessWithContext(ctx, int32(st.Pid)); err == nil {
			if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
				data["cpu_percent"] = cpu
			}
			if mem, err := p.MemoryInfoWithContext(ctx); err == nil {
				data["rss"] = mem.RSS
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": data})
}

func (h *DaemonHandler) Inject(c *gin.Context) {
	var req struct {
		EndpointID string `json:"endpoint_id" binding:"required"`
		UserID     string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if err := h.core.InjectConfigE(c.Request.Context(), req.EndpointID, req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "配置已写入"})
}

// fail 按错误类型选择状态码
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var assocErr *engine.AssociationError
	var cfgErr *engine.ConfigError
	switch {
	case errors.As(err, &assocErr):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrUnknownMode):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNoActiveEndpoint), errors.Is(err, core.ErrNoUser):
		status = http.StatusNotFound
	case errors.As(err, &cfgErr):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"code": status, "message": err.Error()})
}
