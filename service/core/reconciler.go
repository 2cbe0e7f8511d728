package core

import (
	"context"

	"github.com/raydesk/raydesk/model"
)

// Reconciler 启动时把持久化的意图和实际的进程、系统代理状态对齐
type Reconciler struct {
	core *Core
}

func NewReconciler(c *Core) *Reconciler {
	return &Reconciler{core: c}
}

// Run 在命令接口开始接受请求前执行一次，所有失败只记录日志
func (r *Reconciler) Run(ctx context.Context) {
	c := r.core

	if n, err := c.sup.ClearStrayInstances(ctx); err != nil {
		c.log.Warnf("[Reconciler] 清理残留引擎进程失败: %v", err)
	} else if n > 0 {
		c.log.Infof("[Reconciler] 已清理 %d 个残留引擎进程", n)
	}

	if err := c.UnsetPACProxy(ctx); err != nil {
		c.log.Warnf("[Reconciler] 清除 PAC 代理失败: %v", err)
	}
	if err := c.UnsetGlobalProxy(ctx); err != nil {
		c.log.Warnf("[Reconciler] 清除全局代理失败: %v", err)
	}

	userID, err := c.loggedInUser(ctx)
	if err != nil {
		c.log.Infof("[Reconciler] %v，保持引擎停止", err)
		if err := c.sup.Stop(ctx); err != nil {
			c.log.Warnf("[Reconciler] 停止引擎失败: %v", err)
		}
		return
	}

	autoStart := false
	if st, err := c.settings(ctx, userID); err != nil {
		c.log.Warnf("[Reconciler] %v", err)
	} else {
		autoStart = st.AutoStartProxy == 1
	}

	if autoStart {
		if err := c.startActive(ctx, userID); err != nil {
			c.log.Warnf("[Reconciler] 自动启动代理失败: %v", err)
		}
	} else if err := c.sup.Stop(ctx); err != nil {
		c.log.Warnf("[Reconciler] 停止引擎失败: %v", err)
	}

	c.persistRunningState(ctx, userID)
	if err := c.setProxyMode(ctx, userID, model.ProxyModeManual); err != nil {
		c.log.Warnf("[Reconciler] %v", err)
	}
	c.log.Infof("[Reconciler] 用户 %s 状态已校正，引擎运行: %v", userID, c.sup.Status())
}

// startActive 为用户的激活节点生成配置并启动引擎
func (c *Core) startActive(ctx context.Context, userID string) error {
	endpointID, err := c.activeEndpoint(ctx, userID)
	if err != nil {
		return err
	}
	if err := c.InjectConfigE(ctx, endpointID, userID); err != nil {
		return err
	}
	return c.StartDaemonE(ctx)
}
