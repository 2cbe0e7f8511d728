package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/raydesk/raydesk/pkg/utils"
	"github.com/raydesk/raydesk/service/core"
	"github.com/sirupsen/logrus"
)

// ProxyHandler 系统代理模式和节点切换
type ProxyHandler struct {
	log  *logrus.Logger
	core *core.Core
}

func NewProxyHandler(log *logrus.Logger, c *core.Core) *ProxyHandler {
	return &ProxyHandler{log: log, core: c}
}

type portsRequest struct {
	HTTPPort  int `json:"http_port" binding:"required"`
	SocksPort int `json:"socks_port" binding:"required"`
}

func (r portsRequest) validate() error {
	if !utils.ValidatePort(r.HTTPPort) || !utils.ValidatePort(r.SocksPort) {
		return fmt.Errorf("端口无效: %d/%d", r.HTTPPort, r.SocksPort)
	}
	return nil
}

func (h *ProxyHandler) SetupPAC(c *gin.Context) {
	var req struct {
		portsRequest
		CustomRules string `json:"custom_rules"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	url, err := h.core.SetupPACProxy(c.Request.Context(), req.CustomRules, uint16(req.HTTPPort), uint16(req.SocksPort))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"url": url}})
}

func (h *ProxyHandler) UnsetPAC(c *gin.Context) {
	if err := h.core.UnsetPACProxy(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "PAC 代理已关闭"})
}

func (h *ProxyHandler) SetupGlobal(c *gin.Context) {
	var req struct {
		portsRequest
		Host   string   `json:"host"`
		Bypass []string `json:"bypass"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if req.Host == "" {
		req.Host = "127.0.0.1"
	}
	if err := h.core.SetupGlobalProxy(c.Request.Context(), req.Host, uint16(req.HTTPPort), uint16(req.SocksPort), req.Bypass); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "全局代理已开启"})
}

func (h *ProxyHandler) UnsetGlobal(c *gin.Context) {
	if err := h.core.UnsetGlobalProxy(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "全局代理已关闭"})
}

func (h *ProxyHandler) SwitchMode(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Mode   string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if err := h.core.SwitchMode(c.Request.Context(), req.UserID, req.Mode); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"mode": req.Mode, "pac_url": h.core.PACURL()}})
}

func (h *ProxyHandler) SwitchEndpoint(c *gin.Context) {
	var req struct {
		UserID     string `json:"user_id" binding:"required"`
		EndpointID string `json:"endpoint_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	if err := h.core.SwitchEndpoint(c.Request.Context(), req.UserID, req.EndpointID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"running": h.core.CheckDaemonStatus()}})
}

func (h *ProxyHandler) Toggle(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}
	running, err := h.core.ToggleService(c.Request.Context(), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"running": running}})
}

func (h *ProxyHandler) Command(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "缺少 user_id"})
		return
	}
	cmd, err := h.core.ProxyCommand(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"command": cmd}})
}
